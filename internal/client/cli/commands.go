package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/userconsole/internal/client/form"
	"github.com/dmitrijs2005/userconsole/internal/common"
)

var errLoginFailed = errors.New("login failed")

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.reader, "Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res := a.auth.Login(ctx, email, string(password))
	if !res.Success {
		return fmt.Errorf("%w: %s", errLoginFailed, res.Error)
	}

	fmt.Fprintln(a.out, "Login successful")
	return a.Reload(ctx)
}

func (a *App) Logout(ctx context.Context) error {
	a.auth.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Whoami(_ context.Context) error {
	switch u := a.auth.User(); {
	case !a.isLoggedIn():
		fmt.Fprintln(a.out, "Not logged in")
	case u == nil:
		fmt.Fprintln(a.out, "Logged in (profile not loaded yet)")
	default:
		fmt.Fprintf(a.out, "%s %s <%s> (id %d)\n", u.FirstName, u.LastName, u.Email, u.ID)
	}
	return nil
}

// Reload fetches the directory again and shows the current page.
func (a *App) Reload(ctx context.Context) error {
	err := a.dash.Reload(ctx)
	renderDashboard(a.out, a.dash.State())
	return err
}

func (a *App) List(_ context.Context) error {
	renderDashboard(a.out, a.dash.State())
	return nil
}

func (a *App) NextPage(_ context.Context) error {
	if !a.dash.NextPage() {
		return errors.New("already on the last page")
	}
	renderDashboard(a.out, a.dash.State())
	return nil
}

func (a *App) PrevPage(_ context.Context) error {
	if !a.dash.PrevPage() {
		return errors.New("already on the first page")
	}
	renderDashboard(a.out, a.dash.State())
	return nil
}

func (a *App) GoToPage(_ context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("usage: page <number>")
	}
	if err := a.dash.GoToPage(n); err != nil {
		return err
	}
	renderDashboard(a.out, a.dash.State())
	return nil
}

func (a *App) Create(ctx context.Context) error {
	f := a.dash.OpenCreate()
	return a.fillAndSubmit(ctx, f, formFields)
}

func (a *App) Edit(ctx context.Context, arg string) error {
	id, err := parseID(arg, "edit")
	if err != nil {
		return err
	}
	f, err := a.dash.OpenEdit(id)
	if err != nil {
		return err
	}
	return a.fillAndSubmit(ctx, f, formFields)
}

func (a *App) Delete(ctx context.Context, arg string) error {
	id, err := parseID(arg, "delete")
	if err != nil {
		return err
	}
	if err := a.dash.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "User deleted")
	renderDashboard(a.out, a.dash.State())
	return nil
}

func (a *App) Export(ctx context.Context) error {
	where, err := a.dash.Export(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported to %s\n", where)
	return nil
}

func (a *App) Dismiss(_ context.Context) error {
	a.dash.DismissError()
	return nil
}

func parseID(arg, cmd string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("usage: %s <id>", cmd)
	}
	return id, nil
}

var formFields = []string{form.FieldEmail, form.FieldFirstName, form.FieldLastName, form.FieldPhone, form.FieldPassword}

var fieldLabels = map[string]string{
	form.FieldEmail:     "Email",
	form.FieldFirstName: "First name",
	form.FieldLastName:  "Last name",
	form.FieldPhone:     "Phone (optional)",
	form.FieldPassword:  "Password",
}

// clearValue answered to an optional field empties it; a blank answer keeps
// the current value.
const clearValue = "-"

// fillAndSubmit prompts for fields, submits, and on failure offers to
// correct the rejected fields. The form is closed when the operator gives up.
func (a *App) fillAndSubmit(ctx context.Context, f *form.Form, fields []string) error {
	for {
		if err := a.fill(f, fields); err != nil {
			a.dash.CloseForm()
			return err
		}

		err := a.dash.SubmitForm(ctx)
		if err == nil {
			fmt.Fprintln(a.out, "User saved")
			renderDashboard(a.out, a.dash.State())
			return nil
		}

		errs := f.Errors()
		renderFormErrors(a.out, errs)

		again, cerr := Confirm(a.reader, "Try again?", a.out)
		if cerr != nil || !again {
			a.dash.CloseForm()
			return err
		}
		fields = rejectedFields(errs)
	}
}

func (a *App) fill(f *form.Form, fields []string) error {
	current := f.Data()
	for _, field := range fields {
		var (
			v   string
			err error
		)
		switch field {
		case form.FieldPassword:
			prompt := fieldLabels[field]
			if f.IsEdit() {
				prompt += " (blank keeps current)"
			}
			var pw []byte
			pw, err = GetPassword(a.reader, prompt, a.out)
			v = string(pw)
			common.WipeByteArray(pw)
		case form.FieldPhone:
			prompt := fieldLabels[field]
			if f.IsEdit() {
				prompt = "Phone (optional, '" + clearValue + "' clears)"
			}
			v, err = GetWithDefault(a.reader, prompt, fieldValue(current, field), a.out)
			if v == clearValue {
				v = ""
			}
		default:
			v, err = GetWithDefault(a.reader, fieldLabels[field], fieldValue(current, field), a.out)
		}
		if err != nil {
			return err
		}
		if err := f.Set(field, v); err != nil {
			return err
		}
	}
	return nil
}

func fieldValue(d form.Data, field string) string {
	switch field {
	case form.FieldEmail:
		return d.Email
	case form.FieldFirstName:
		return d.FirstName
	case form.FieldLastName:
		return d.LastName
	case form.FieldPhone:
		return d.Phone
	default:
		return ""
	}
}

// rejectedFields lists the fields to ask again. A backend rejection that is
// not tied to one field asks for everything.
func rejectedFields(errs form.Errors) []string {
	var out []string
	for _, f := range formFields {
		if _, ok := errs[f]; ok {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return formFields
	}
	return out
}
