package main

import (
	"os"

	"github.com/spf13/cobra"

	"spendtrack/internal/render"
	"spendtrack/internal/services"
	"spendtrack/internal/settings"
)

var (
	flagEmail    string
	flagPassword string
	flagName     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the access token",
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and store the access token",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	RunE:  runLogout,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&flagEmail, "email", "", "Account email")
		c.Flags().StringVar(&flagPassword, "password", os.Getenv("SPENDTRACK_PASSWORD"), "Account password (or SPENDTRACK_PASSWORD)")
	}
	registerCmd.Flags().StringVar(&flagName, "name", "", "Display name")
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	email, err := prompt("Email", flagEmail)
	if err != nil {
		return err
	}
	password, err := prompt("Password", flagPassword)
	if err != nil {
		return err
	}

	sess, err := s.api.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	return saveSession(s, sess, "Logged in as "+sess.User.Email)
}

func runRegister(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	in := services.RegisterInput{}
	if in.Name, err = prompt("Name", flagName); err != nil {
		return err
	}
	if in.Email, err = prompt("Email", flagEmail); err != nil {
		return err
	}
	if in.Password, err = prompt("Password", flagPassword); err != nil {
		return err
	}

	sess, err := s.api.Register(cmd.Context(), in)
	if err != nil {
		return err
	}
	return saveSession(s, sess, "Registered "+sess.User.Email)
}

func runLogout(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	s.settings.API.Token = ""
	if err := settings.Save(s.settings); err != nil {
		return err
	}
	info(render.Success("Logged out"))
	return nil
}

func saveSession(s *session, sess services.Session, msg string) error {
	s.settings.API.Token = sess.Token
	s.settings.API.Email = sess.User.Email
	if flagAPI != "" {
		s.settings.API.URL = flagAPI
	}
	if err := settings.Save(s.settings); err != nil {
		return err
	}
	info(render.Success(msg))
	info(render.Muted("Token expires " + sess.ExpiresAt.Local().Format("2006-01-02 15:04")))
	return nil
}
