package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dmitrijs2005/userconsole/internal/client/dashboard"
	"github.com/dmitrijs2005/userconsole/internal/client/form"
)

func renderDashboard(w io.Writer, s dashboard.State) {
	if s.Error != "" {
		fmt.Fprintf(w, "! %s (type 'dismiss' to hide)\n", s.Error)
	}
	if s.Loading {
		fmt.Fprintln(w, "Loading...")
		return
	}
	if len(s.Users) == 0 {
		fmt.Fprintln(w, "No users")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tPHONE\tJOINED")
	for _, u := range s.Visible {
		joined := "-"
		if u.DateJoined != nil {
			joined = u.DateJoined.Format("2006-01-02")
		}
		phone := u.Phone
		if phone == "" {
			phone = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.FullName(), phone, joined)
	}
	tw.Flush()

	if s.ShowPagination() {
		fmt.Fprintf(w, "Page %d/%d", s.CurrentPage, s.TotalPages)
		if s.CanPrev() {
			fmt.Fprint(w, "  prev")
		}
		if s.CanNext() {
			fmt.Fprint(w, "  next")
		}
		fmt.Fprintln(w)
	}
}

func renderFormErrors(w io.Writer, errs form.Errors) {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, errs[k])
	}
}
