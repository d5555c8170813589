package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/linkstash/linkstash/internal/domain"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/share"
)

// consoleUI reports share intake outcomes on the terminal and remembers the
// last of each so a one-shot command can decide its exit status.
type consoleUI struct {
	app *app
	// echo prints notices as they happen. One-shot commands return them as
	// errors instead.
	echo bool

	mu     sync.Mutex
	saved  *domain.SavedItem
	err    error
	signIn bool
}

var _ share.UI = (*consoleUI)(nil)

func (u *consoleUI) Notice(msg string) {
	if u.echo {
		fmt.Fprintln(u.app.errOut, "notice:", msg)
	}
}

func (u *consoleUI) OpenSignIn() {
	u.mu.Lock()
	u.signIn = true
	u.mu.Unlock()
	fmt.Fprintln(u.app.errOut, "sign in to save shared links: pass --user or set LINKSTASH_USER")
}

func (u *consoleUI) Saved(item *domain.SavedItem) {
	u.mu.Lock()
	u.saved = item
	u.mu.Unlock()

	if u.echo {
		fmt.Fprintf(u.app.out, "saved %s %s\n", item.ID, item.URL)
		return
	}
	if err := u.app.printItem(item); err != nil {
		fmt.Fprintln(u.app.errOut, "error:", err)
	}
}

func (u *consoleUI) Error(err error) {
	u.mu.Lock()
	u.err = err
	u.mu.Unlock()

	if u.echo {
		fmt.Fprintln(u.app.errOut, "error:", domainerrors.Message(err))
	}
}

func (u *consoleUI) OpenManualEntry(d share.Draft) {
	w := u.app.errOut
	fmt.Fprintln(w, "the shared link was not saved; to save it by hand run:")
	fmt.Fprintf(w, "  linkstash save %s", shellQuote(d.URL))
	if d.Title != "" {
		fmt.Fprintf(w, " --title %s", shellQuote(d.Title))
	}
	if d.SourceApp != "" {
		fmt.Fprintf(w, " --source %s", shellQuote(d.SourceApp))
	}
	fmt.Fprintln(w)
}

func (u *consoleUI) outcome() (saved *domain.SavedItem, signIn bool, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.saved, u.signIn, u.err
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
