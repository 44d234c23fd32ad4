package loans

import (
	"net/http"
	"strconv"
	"time"

	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

type handler struct {
	loanService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	loans, err := h.loanService.List(ctx)
	if err != nil {
		return err
	}

	resp := struct {
		Loans []*models.Loan `json:"loans"`
	}{loans}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := loanID(c)
	if err != nil {
		return err
	}

	loan, err := h.loanService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loan)
}

func (h *handler) listByUser(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := ListLoansByUserQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	loans, totalPages, err := h.loanService.ListByUser(ctx, userID, ListByUserOptions{
		Page:  params.Page,
		Limit: params.Limit,
	})
	if err != nil {
		return err
	}

	resp := struct {
		Loans      []*models.Loan `json:"loans"`
		TotalPages int            `json:"total_pages"`
	}{loans, totalPages}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) borrow(c echo.Context) error {
	ctx := c.Request().Context()

	params := BorrowPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	loan, err := h.loanService.Borrow(ctx, params.UserID, params.BookID)
	if err != nil {
		return err
	}

	resp := struct {
		Message string       `json:"message"`
		Loan    *models.Loan `json:"loan"`
	}{"Book borrowed successfully.", loan}

	return c.JSON(http.StatusCreated, resp)
}

func (h *handler) returnLoan(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := loanID(c)
	if err != nil {
		return err
	}

	loan, err := h.loanService.Return(ctx, id)
	if err != nil {
		return err
	}

	resp := struct {
		Message string       `json:"message"`
		Loan    *models.Loan `json:"loan"`
	}{"Book returned successfully.", loan}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) add(c echo.Context) error {
	ctx := c.Request().Context()

	params := AddLoanPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := AddLoanOptions{
		BookID: params.BookID,
		UserID: params.UserID,
		Title:  params.Title,
	}

	var err error
	opts.LoanDate, err = time.Parse(dateLayout, params.LoanDate)
	if err != nil {
		return errors.WithStack(err)
	}
	opts.ReturnDate, err = time.Parse(dateLayout, params.ReturnDate)
	if err != nil {
		return errors.WithStack(err)
	}
	if params.DateReturned != nil && *params.DateReturned != "" {
		returned, err := time.Parse(dateLayout, *params.DateReturned)
		if err != nil {
			return errors.WithStack(err)
		}
		opts.DateReturned = &returned
	}

	loan, err := h.loanService.Add(ctx, opts)
	if err != nil {
		return err
	}

	resp := struct {
		Message string       `json:"message"`
		Loan    *models.Loan `json:"loan"`
	}{"Loan added successfully.", loan}

	return c.JSON(http.StatusCreated, resp)
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := loanID(c)
	if err != nil {
		return err
	}

	params := UpdateLoanPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateLoanOptions{
		BookID: params.BookID,
		UserID: params.UserID,
	}

	if params.LoanDate != nil {
		loanDate, err := time.Parse(dateLayout, *params.LoanDate)
		if err != nil {
			return errors.WithStack(err)
		}
		opts.LoanDate = &loanDate
	}
	if params.ReturnDate != nil {
		returnDate, err := time.Parse(dateLayout, *params.ReturnDate)
		if err != nil {
			return errors.WithStack(err)
		}
		opts.ReturnDate = &returnDate
	}
	if params.DateReturned != nil {
		opts.SetDateReturned = true
		if *params.DateReturned != "" {
			returned, err := time.Parse(dateLayout, *params.DateReturned)
			if err != nil {
				return errors.WithStack(err)
			}
			opts.DateReturned = &returned
		}
	}

	loan, err := h.loanService.Update(ctx, id, opts)
	if err != nil {
		return err
	}

	resp := struct {
		Message string       `json:"message"`
		Loan    *models.Loan `json:"loan"`
	}{"Loan updated successfully.", loan}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) deleteLoan(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := loanID(c)
	if err != nil {
		return err
	}

	if err := h.loanService.Delete(ctx, id); err != nil {
		return err
	}

	resp := struct {
		Message string `json:"message"`
	}{"Loan deleted successfully."}

	return c.JSON(http.StatusOK, resp)
}

func loanID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, errcodes.NotFound("Loan")
	}
	return id, nil
}
