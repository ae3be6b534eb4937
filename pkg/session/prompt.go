package session

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptCredentials reads a username and password interactively. The
// password is read without echo when stdin is a terminal.
func PromptCredentials(domain string) (*Credentials, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("Username for %s: ", domain)
	username, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)

	fmt.Printf("Password for %s: ", domain)

	var password string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	} else {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	return &Credentials{
		Domain:   domain,
		Username: username,
		Password: password,
	}, nil
}
