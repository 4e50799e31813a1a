package console

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"usermgmt/internal/api"
	"usermgmt/internal/cli"
)

func (s *Shell) writeJSON(v any) error {
	return cli.WriteJSON(s.out, v)
}

func (s *Shell) emitUser(u api.User) error {
	if s.json {
		return s.writeJSON(u)
	}
	s.renderUsers([]api.User{u})
	return nil
}

func (s *Shell) renderUsers(users []api.User) {
	if len(users) == 0 {
		fmt.Fprintln(s.out, "no users")
		return
	}
	tw := tabwriter.NewWriter(s.out, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tACTIVE\tROLES\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Email, dash(u.DisplayName), okWord(u.IsActive, "yes", "no"),
			dash(strings.Join(u.Roles, ",")), formatTime(u.CreatedAt))
	}
	tw.Flush()
}

func (s *Shell) renderCredentials(creds []api.Credential) {
	if len(creds) == 0 {
		fmt.Fprintln(s.out, "no credentials")
		return
	}
	tw := tabwriter.NewWriter(s.out, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tLABEL\tSTATUS\tCREATED\tEXPIRES")
	for _, c := range creds {
		label := ""
		if c.Label != nil {
			label = *c.Label
		}
		expires := "-"
		if c.ExpiresAt != nil {
			expires = formatTime(*c.ExpiresAt)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n",
			c.ID, c.UserID, dash(label), okWord(c.Revoked, "revoked", "active"),
			formatTime(c.CreatedAt), expires)
	}
	tw.Flush()
}

func (s *Shell) renderAudit(entries []api.AuditEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "no audit entries")
		return
	}
	tw := tabwriter.NewWriter(s.out, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tUSER\tIP\tUSER AGENT")
	for _, e := range entries {
		user := "-"
		if e.UserID != nil {
			user = strconv.FormatInt(*e.UserID, 10)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			formatTime(e.OccurredAt), e.EventType, user, derefOrDash(e.IP), derefOrDash(e.UserAgent))
	}
	tw.Flush()
}

func formatTime(t api.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func derefOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return dash(*s)
}
