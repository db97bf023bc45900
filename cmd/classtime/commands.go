package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/classtime-project/classtime-client/internal/accounts"
	"github.com/classtime-project/classtime-client/internal/schemas"
	"github.com/classtime-project/classtime-client/internal/session"
	"github.com/classtime-project/classtime-client/internal/stubserver"
)

func (a *app) loginCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and start a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				password, err = promptLine("Password: ")
				if err != nil {
					return err
				}
			}

			req := &accounts.LoginRequest{Email: email, Password: password}
			if err := schemas.ValidateLogin(req); err != nil {
				return err
			}

			if err := a.store.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			a.saveSession()
			return a.report(cmd)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted if omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Logout(cmd.Context()); err != nil {
				return err
			}
			a.clearSession()
			return a.report(cmd)
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account for the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.RefreshUser(cmd.Context()); err != nil {
				return err
			}
			return a.report(cmd)
		},
	}
}

func (a *app) requestRegistrationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "request-registration <email>",
		Short: "Request a registration mail for an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.RegistrationMail(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("registration mail requested for %s\n", args[0])
			return nil
		},
	}
}

func (a *app) registerCommand() *cobra.Command {
	var token string
	req := accounts.RegisterRequest{}
	var role, gender string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Complete a registration using the token from the mail link",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = accounts.UserRole(role)
			req.Gender = accounts.UserGender(gender)

			if req.Password == "" {
				var err error
				req.Password, err = promptLine("Password: ")
				if err != nil {
					return err
				}
			}

			if err := schemas.ValidateRegister(&req); err != nil {
				return err
			}

			if err := a.store.Register(cmd.Context(), token, &req); err != nil {
				return err
			}
			a.saveSession()
			return a.report(cmd)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "registration token from the mail link")
	cmd.Flags().StringVar(&role, "role", "", "account role (student, teacher or guardian)")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.MiddleName, "middle-name", "", "middle name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "phone number in international format")
	cmd.Flags().StringVar(&gender, "gender", "", "gender (male, female, other or prefer_not_to_say)")
	cmd.Flags().StringVar(&req.Email, "email", "", "account email (must match the mail link)")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password (prompted if omitted)")
	cmd.Flags().StringVar(&req.SchoolNum, "school-num", "", "school number (students and teachers only)")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("gender")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) requestResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "request-reset <email>",
		Short: "Request a password-reset mail for an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.ResetPasswordMail(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("password reset mail requested for %s\n", args[0])
			return nil
		},
	}
}

func (a *app) resetPasswordCommand() *cobra.Command {
	var token, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password using the token from the mail link",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				password, err = promptLine("New password: ")
				if err != nil {
					return err
				}
			}

			req := &accounts.ResetPasswordRequest{
				ResetPwdToken: token,
				NewPassword:   password,
			}
			if err := schemas.ValidateResetPassword(req); err != nil {
				return err
			}

			if err := a.api.ResetPassword(cmd.Context(), req); err != nil {
				return err
			}
			cmd.Println("password updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "reset token from the mail link")
	cmd.Flags().StringVar(&password, "password", "", "new password (prompted if omitted)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (a *app) profileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile management",
	}
	cmd.AddCommand(a.profileUpdateCommand())
	return cmd
}

func (a *app) profileUpdateCommand() *cobra.Command {
	var firstName, middleName, lastName, phone, gender string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Edit profile fields of the current account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &accounts.UpdateProfileRequest{}
			if cmd.Flags().Changed("first-name") {
				req.FirstName = &firstName
			}
			if cmd.Flags().Changed("middle-name") {
				req.MiddleName = &middleName
			}
			if cmd.Flags().Changed("last-name") {
				req.LastName = &lastName
			}
			if cmd.Flags().Changed("phone") {
				req.Phone = &phone
			}
			if cmd.Flags().Changed("gender") {
				g := accounts.UserGender(gender)
				req.Gender = &g
			}

			if err := schemas.ValidateUpdateProfile(req); err != nil {
				return err
			}

			user, err := a.api.UpdateProfile(cmd.Context(), req)
			if err != nil {
				return err
			}
			cmd.Printf("profile updated: %s <%s>\n", user.FullName(), user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&middleName, "middle-name", "", "middle name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number in international format")
	cmd.Flags().StringVar(&gender, "gender", "", "gender")
	return cmd
}

func (a *app) stubServerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stub-server",
		Short: "Run the in-memory account API for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := stubserver.New(a.cfg.StubSecretKey, a.cfg.StubOrigins, a.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := fmt.Sprintf("%s:%d", a.cfg.StubHost, a.cfg.StubPort)
			return server.Start(ctx, addr)
		},
	}
}

// report prints the session store outcome the way a UI would render it.
func (a *app) report(cmd *cobra.Command) error {
	snap := a.store.Snapshot()

	switch snap.Status {
	case session.StatusAuthenticated:
		cmd.Printf("logged in as %s <%s> (%s)\n", snap.User.FullName(), snap.User.Email, snap.User.Role)
		return nil
	case session.StatusUnauthenticated:
		if snap.ErrMsg != "" {
			return fmt.Errorf("%s", snap.ErrMsg)
		}
		cmd.Println("not logged in")
		return nil
	case session.StatusError:
		return fmt.Errorf("%s", snap.ErrMsg)
	default:
		cmd.Println(snap.Status.String())
		return nil
	}
}

func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
