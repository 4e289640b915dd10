// Package dashboard holds the state of the user management screen: the
// fetched directory, the open form, the error banner and the current page.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/userconsole/internal/client/client"
	"github.com/dmitrijs2005/userconsole/internal/client/form"
	"github.com/dmitrijs2005/userconsole/internal/client/models"
	"github.com/dmitrijs2005/userconsole/internal/client/services"
	"github.com/dmitrijs2005/userconsole/internal/common"
	"github.com/dmitrijs2005/userconsole/internal/logging"
)

const (
	DefaultPageSize = 5

	msgLoadFailed   = "failed to load users"
	msgCreateFailed = "failed to create user"
	msgUpdateFailed = "failed to update user"
	msgDeleteFailed = "failed to delete user"
	msgExportFailed = "failed to export users"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// ProfileObserver is told about every fetched listing.
type ProfileObserver interface {
	ObserveUsers(users []models.User)
}

// State is a snapshot of the screen.
type State struct {
	Loading     bool
	Users       []models.User
	ShowForm    bool
	Editing     *models.User
	Error       string
	CurrentPage int
	TotalPages  int
	// Visible is the slice of Users on CurrentPage.
	Visible []models.User
}

// ShowPagination reports whether page controls are displayed at all.
func (s State) ShowPagination() bool {
	return s.TotalPages > 1
}

func (s State) CanPrev() bool {
	return s.CurrentPage > 1
}

func (s State) CanNext() bool {
	return s.CurrentPage < s.TotalPages
}

// Controller owns the in-memory user list. Every mutation of the list
// happens only after the backend confirmed it.
type Controller struct {
	users    services.UserService
	observer ProfileObserver
	confirm  Confirmer
	log      logging.Logger
	pageSize int

	mu      sync.Mutex
	loading bool
	list    []models.User
	form    *form.Form
	err     string
	page    int
}

type Option func(*Controller)

func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithProfileObserver(o ProfileObserver) Option {
	return func(c *Controller) { c.observer = o }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func New(users services.UserService, confirm Confirmer, opts ...Option) *Controller {
	c := &Controller{
		users:    users,
		confirm:  confirm,
		log:      logging.Nop(),
		pageSize: DefaultPageSize,
		page:     1,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("component", "dashboard")
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Loading:     c.loading,
		Users:       append([]models.User(nil), c.list...),
		ShowForm:    c.form != nil,
		Error:       c.err,
		CurrentPage: c.page,
		TotalPages:  TotalPages(len(c.list), c.pageSize),
	}
	if c.form != nil {
		s.Editing = c.form.Editing()
	}
	s.Visible = Page(s.Users, c.pageSize, c.page)
	return s
}

func (c *Controller) PageSize() int {
	return c.pageSize
}

// Mount fetches the directory. On failure the list is emptied and the
// error banner is set.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	users, err := c.users.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.log.Warn(ctx, "list users failed", "error", err)
		c.list = nil
		c.err = msgLoadFailed
		c.page = 1
		return fmt.Errorf("%s: %w", msgLoadFailed, err)
	}

	c.list = users
	c.page = ClampPage(c.page, TotalPages(len(c.list), c.pageSize))
	if c.observer != nil {
		c.observer.ObserveUsers(users)
	}
	return nil
}

// Reload is Mount under the name the console uses.
func (c *Controller) Reload(ctx context.Context) error {
	return c.Mount(ctx)
}

// OpenCreate opens an empty create form.
func (c *Controller) OpenCreate() *form.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = form.New()
	return c.form
}

// OpenEdit opens a form prefilled from the listed user id.
func (c *Controller) OpenEdit(id int64) (*form.Form, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
	}
	c.form = form.NewEdit(c.list[i])
	return c.form, nil
}

// Form returns the open form, or nil.
func (c *Controller) Form() *form.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

func (c *Controller) CloseForm() {
	c.mu.Lock()
	c.form = nil
	c.mu.Unlock()
}

// SubmitForm validates and sends the open form. On success the list is
// updated and the form closed; on failure the message stays in the form
// and the list is untouched.
func (c *Controller) SubmitForm(ctx context.Context) error {
	f := c.Form()
	if f == nil {
		return errors.New("no form is open")
	}

	if editing := f.Editing(); editing != nil {
		id := editing.ID
		return f.Submit(ctx, func(ctx context.Context, d form.Data) error {
			u, err := c.users.Update(ctx, id, d.Patch())
			if err != nil {
				c.log.Warn(ctx, "update user failed", "id", id, "error", err)
				return submitError(err, msgUpdateFailed)
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			if i := c.indexLocked(id); i >= 0 {
				c.list[i] = *u
			}
			c.closeLocked(f)
			return nil
		})
	}

	return f.Submit(ctx, func(ctx context.Context, d form.Data) error {
		u, err := c.users.Create(ctx, d.Draft())
		if err != nil {
			c.log.Warn(ctx, "create user failed", "error", err)
			return submitError(err, msgCreateFailed)
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		c.list = append(c.list, *u)
		c.closeLocked(f)
		return nil
	})
}

// closeLocked closes f if it is still the open form and clears the banner.
func (c *Controller) closeLocked(f *form.Form) {
	if c.form == f {
		c.form = nil
	}
	c.err = ""
}

// submitError keeps the cause for errors.Is and shows the backend's own
// message when it sent one.
func submitError(err error, fallback string) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &formError{msg: apiErr.Message, cause: err}
	}
	if errs, ok := form.AsErrors(err); ok {
		return &formError{msg: errs.Error(), cause: err}
	}
	return &formError{msg: fallback, cause: err}
}

type formError struct {
	msg   string
	cause error
}

func (e *formError) Error() string { return e.msg }
func (e *formError) Unwrap() error { return e.cause }

// Delete asks for confirmation and removes id. A declined prompt returns
// common.ErrNotConfirmed and sends nothing.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	i := c.indexLocked(id)
	var label string
	if i >= 0 {
		label = c.list[i].Email
	}
	c.mu.Unlock()
	if i < 0 {
		return fmt.Errorf("user %d: %w", id, common.ErrNotFound)
	}

	ok, err := c.confirm.Confirm(ctx, fmt.Sprintf("Delete user %s?", label))
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return common.ErrNotConfirmed
	}

	if err := c.users.Delete(ctx, id); err != nil {
		c.log.Warn(ctx, "delete user failed", "id", id, "error", err)
		c.mu.Lock()
		c.err = msgDeleteFailed
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", msgDeleteFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		c.list = append(c.list[:i:i], c.list[i+1:]...)
	}
	c.page = ClampPage(c.page, TotalPages(len(c.list), c.pageSize))
	return nil
}

// Export saves the CSV export. A failure only sets the banner.
func (c *Controller) Export(ctx context.Context) (string, error) {
	where, err := c.users.ExportCSV(ctx)
	if err != nil {
		c.log.Warn(ctx, "export failed", "error", err)
		c.mu.Lock()
		c.err = msgExportFailed
		c.mu.Unlock()
		return "", fmt.Errorf("%s: %w", msgExportFailed, err)
	}
	return where, nil
}

func (c *Controller) DismissError() {
	c.mu.Lock()
	c.err = ""
	c.mu.Unlock()
}

// NextPage and PrevPage are no-ops at the bounds, like disabled controls.
func (c *Controller) NextPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page >= TotalPages(len(c.list), c.pageSize) {
		return false
	}
	c.page++
	return true
}

func (c *Controller) PrevPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page <= 1 {
		return false
	}
	c.page--
	return true
}

// GoToPage moves to page if it exists.
func (c *Controller) GoToPage(page int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := TotalPages(len(c.list), c.pageSize)
	if page < 1 || page > max(total, 1) {
		return fmt.Errorf("page %d out of range 1..%d", page, max(total, 1))
	}
	c.page = page
	return nil
}

func (c *Controller) indexLocked(id int64) int {
	for i, u := range c.list {
		if u.ID == id {
			return i
		}
	}
	return -1
}
