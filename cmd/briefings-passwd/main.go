// Command briefings-passwd reads an admin password from stdin and prints a
// hash suitable for BRIEFINGS_ADMIN_PASSWORD_HASH.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/briefings/internal/application"
)

var errEmptyPassword = errors.New("password must not be empty")

func main() {
	algo := flag.String("algo", "argon2id", "hash algorithm: argon2id or bcrypt")
	flag.Parse()

	if err := run(os.Stdin, os.Stdout, *algo); err != nil {
		slog.Error("hashing password failed", "error", err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer, algo string) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errEmptyPassword
	}

	var hash string
	switch algo {
	case "argon2id":
		hash, err = application.CreatePasswordHash(password, application.DefaultArgon2idParams)
	case "bcrypt":
		var b []byte
		b, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		hash = string(b)
	default:
		return fmt.Errorf("unknown algorithm %q", algo)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
