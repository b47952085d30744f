// Package admincli implements the interactive commands of adminctl.
package admincli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/visadesk/internal/common"
	"github.com/dmitrijs2005/visadesk/internal/server/services"
	"github.com/dmitrijs2005/visadesk/internal/shared"
)

var errPasswordMismatch = errors.New("passwords do not match")

// Registrar creates the first admin account.
type Registrar interface {
	RegisterFirstAdmin(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
}

type App struct {
	reader *bufio.Reader
	out    io.Writer
	reg    Registrar
}

func NewApp(in io.Reader, out io.Writer, reg Registrar) *App {
	return &App{reader: bufio.NewReader(in), out: out, reg: reg}
}

// Bootstrap prompts for the first admin's details and registers it.
// The password is read twice without echo.
func (a *App) Bootstrap(ctx context.Context) error {
	var in services.RegisterInput
	var err error

	fields := []struct {
		prompt string
		dst    *string
	}{
		{"First name", &in.FirstName},
		{"Last name", &in.LastName},
		{"Username", &in.UserName},
		{"Email", &in.Email},
	}
	for _, f := range fields {
		if *f.dst, err = GetSimpleText(a.reader, f.prompt, a.out); err != nil {
			return err
		}
	}

	pw, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(pw)
	confirm, err := GetPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		return errPasswordMismatch
	}
	// Best effort only: the string copy below is not wiped.
	in.Password = string(pw)

	res, err := a.reg.RegisterFirstAdmin(ctx, in)
	if err != nil {
		var ve *common.ValidationError
		if errors.As(err, &ve) {
			for _, m := range ve.Errors {
				fmt.Fprintln(a.out, " -", m)
			}
		}
		return err
	}

	fmt.Fprintf(a.out, "Admin %s created (id %s)\n", res.User.UserName, res.User.ID)
	return nil
}

// GenerateSecret prints a fresh signing secret for JWT_SECRET.
func (a *App) GenerateSecret(size int) error {
	s, err := shared.GenerateSecret(size)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, s)
	return err
}
