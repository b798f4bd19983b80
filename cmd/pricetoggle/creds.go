package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tabrown76/Aramark-Scripts/internal/browser"
	"github.com/tabrown76/Aramark-Scripts/internal/credential"
)

var portals = []string{credential.PortalMenus, credential.PortalLevels}

func credentialStore() *credential.Store {
	c := ServerConfig
	return credential.NewStore(map[string]browser.Credentials{
		credential.PortalMenus:  {Username: c.Menus.Username, Password: c.Menus.Password},
		credential.PortalLevels: {Username: c.Levels.Username, Password: c.Levels.Password},
	})
}

func checkPortal(args []string) (string, error) {
	for _, p := range portals {
		if args[0] == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown portal %q (want %s)", args[0], strings.Join(portals, " or "))
}

// CredsCmd manages portal logins in the OS keyring.
func CredsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage portal logins stored in the OS keyring",
	}

	var username string
	setCmd := &cobra.Command{
		Use:   "set <menus|levels>",
		Short: "Store a portal login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			portal, err := checkPortal(args)
			if err != nil {
				return err
			}
			in := bufio.NewReader(os.Stdin)
			if username == "" {
				fmt.Print("Username: ")
				line, err := in.ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				username = strings.TrimSpace(line)
			}
			password, err := readPassword(in)
			if err != nil {
				return err
			}
			if err := credentialStore().Set(portal, browser.Credentials{Username: username, Password: password}); err != nil {
				return err
			}
			fmt.Printf("Saved %s login for %s\n", portal, username)
			return nil
		},
	}
	setCmd.Flags().StringVarP(&username, "username", "u", "", "portal username (prompted when empty)")

	deleteCmd := &cobra.Command{
		Use:   "delete <menus|levels>",
		Short: "Remove a stored portal login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			portal, err := checkPortal(args)
			if err != nil {
				return err
			}
			if err := credentialStore().Delete(portal); err != nil {
				return err
			}
			fmt.Printf("Removed %s login\n", portal)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show where each portal login comes from",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := credentialStore()
			if !credential.Available() {
				fmt.Println("OS keyring: unavailable")
			}
			for _, p := range portals {
				src := store.Source(p)
				if src == "" {
					src = "missing"
				}
				fmt.Printf("%-7s %s\n", p, src)
			}
			return nil
		},
	}

	cmd.AddCommand(setCmd, deleteCmd, statusCmd)
	return cmd
}

// readPassword prompts without echo on a terminal and reads a line otherwise.
func readPassword(in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password on stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
