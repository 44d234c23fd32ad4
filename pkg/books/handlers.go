package books

import (
	"net/http"
	"strconv"

	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/biblioteka/biblioteka/pkg/uploads"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	bookService *Service
	uploadStore *uploads.Store
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	books, err := h.bookService.List(ctx)
	if err != nil {
		return err
	}

	resp := struct {
		Books []*models.Book `json:"books"`
	}{books}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := bookID(c)
	if err != nil {
		return err
	}

	book, err := h.bookService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, book)
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	params := SearchBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, err := h.bookService.Search(ctx, params.Query)
	if err != nil {
		return err
	}

	resp := struct {
		Books []*models.Book `json:"books"`
	}{books}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := CreateBookOptions{
		Title:    params.Title,
		Author:   params.Author,
		Quantity: params.Quantity,
	}

	if file, ok := params.FormFiles["image"]; ok {
		imageURL, err := h.uploadStore.SaveImage(file)
		if err != nil {
			return err
		}
		opts.ImageURL = &imageURL
	}

	book, err := h.bookService.Create(ctx, opts)
	if err != nil {
		return err
	}

	resp := struct {
		Message string       `json:"message"`
		Book    *models.Book `json:"book"`
	}{"Book added successfully.", book}

	return c.JSON(http.StatusCreated, resp)
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := bookID(c)
	if err != nil {
		return err
	}

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetched before the update so a replaced cover can be cleaned up after.
	existing, err := h.bookService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	opts := UpdateBookOptions{
		Title:    params.Title,
		Author:   params.Author,
		Quantity: params.Quantity,
	}

	if file, ok := params.FormFiles["image"]; ok {
		imageURL, err := h.uploadStore.SaveImage(file)
		if err != nil {
			return err
		}
		opts.ImageURL = &imageURL
	}

	book, err := h.bookService.Update(ctx, id, opts)
	if err != nil {
		return err
	}

	if opts.ImageURL != nil && existing.ImageURL != nil && *existing.ImageURL != *opts.ImageURL {
		if err := h.uploadStore.Remove(*existing.ImageURL); err != nil {
			return err
		}
	}

	resp := struct {
		Message string       `json:"message"`
		Book    *models.Book `json:"book"`
	}{"Book updated successfully.", book}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) updateAvailability(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := bookID(c)
	if err != nil {
		return err
	}

	book, err := h.bookService.UpdateAvailability(ctx, id)
	if err != nil {
		return err
	}

	resp := struct {
		Message string       `json:"message"`
		Book    *models.Book `json:"book"`
	}{"Book availability updated.", book}

	return c.JSON(http.StatusOK, resp)
}

func (h *handler) deleteBook(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := bookID(c)
	if err != nil {
		return err
	}

	book, err := h.bookService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	if err := h.bookService.Delete(ctx, id); err != nil {
		return err
	}

	if book.ImageURL != nil {
		if err := h.uploadStore.Remove(*book.ImageURL); err != nil {
			return err
		}
	}

	resp := struct {
		Message string `json:"message"`
	}{"Book deleted successfully."}

	return c.JSON(http.StatusOK, resp)
}

func bookID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, errcodes.NotFound("Book")
	}
	return id, nil
}
