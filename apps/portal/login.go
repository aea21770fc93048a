package main

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var readPasswordFunc = term.ReadPassword // mockable

func loginCmd(a *app) *cobra.Command {
	var username, password string

	c := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session token for the next commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				pwd, err := readPasswordFunc(int(syscall.Stdin))
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return errors.Wrap(err, "reading password")
				}
				password = string(pwd)
			}

			token, err := a.client.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if err = a.tokens.Save(token); err != nil {
				return err
			}
			a.cache.Purge()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
			return nil
		},
	}
	c.Flags().StringVarP(&username, "username", "u", "", "Username or email")
	c.Flags().StringVarP(&password, "password", "p", "", "Password; prompted when empty")
	_ = c.MarkFlagRequired("username")
	return c
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.tokens.Clear(); err != nil {
				return err
			}
			a.cache.Purge()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
