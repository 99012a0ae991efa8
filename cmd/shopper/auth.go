package main

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/client/session"
	"storefront/internal/domain/auth"
	xerrors "storefront/internal/pkg/errors"

	"github.com/spf13/cobra"
)

const maxCodeAttempts = 5

func newLoginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				var err error
				if email, err = rt.prompt(cmd, "Email: "); err != nil {
					return err
				}
			}
			password, err := rt.prompt(cmd, "Password: ")
			if err != nil {
				return err
			}
			if err := rt.session.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", rt.session.Identity().DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newSignupCmd() *cobra.Command {
	var req session.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and confirm it with the emailed code",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Email == "" {
				var err error
				if req.Email, err = rt.prompt(cmd, "Email: "); err != nil {
					return err
				}
			}
			password, err := rt.prompt(cmd, "Password: ")
			if err != nil {
				return err
			}
			req.Password = password

			ch, err := rt.session.Signup(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verification code sent to %s\n", ch.Contact)
			if err := confirmCode(cmd); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "welcome, %s\n", rt.session.Identity().DisplayName)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Email, "email", "", "account email")
	f.StringVar(&req.FirstName, "first-name", "", "first name")
	f.StringVar(&req.LastName, "last-name", "", "last name")
	f.StringVar(&req.Mobile, "mobile", "", "mobile number")
	return cmd
}

func newForgotCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Reset a forgotten password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				var err error
				if email, err = rt.prompt(cmd, "Email: "); err != nil {
					return err
				}
			}
			ch, err := rt.session.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset code sent to %s\n", ch.Contact)
			if err := confirmCode(cmd); err != nil {
				return err
			}

			password, err := rt.prompt(cmd, "New password: ")
			if err != nil {
				return err
			}
			if err := rt.session.ResetPassword(cmd.Context(), password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password updated, sign in again")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newVerifyMobileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-mobile",
		Short: "Confirm the mobile number on the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := rt.session.StartMobileVerification(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "code sent to %s\n", ch.Contact)
			if err := confirmCode(cmd); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "mobile verified")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := rt.session.Identity()
			if id == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return nil
			}
			if refresh {
				var err error
				if id, err = rt.session.RefreshProfile(cmd.Context()); err != nil {
					return err
				}
			}
			printIdentity(cmd, id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "reload the profile from the server")
	return cmd
}

func newProfileCmd() *cobra.Command {
	var first, last, mobile string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req auth.UpdateProfileRequest
			if cmd.Flags().Changed("first-name") {
				req.FirstName = &first
			}
			if cmd.Flags().Changed("last-name") {
				req.LastName = &last
			}
			if cmd.Flags().Changed("mobile") {
				req.Mobile = &mobile
			}
			id, err := rt.session.UpdateProfile(cmd.Context(), req)
			if err != nil {
				return err
			}
			printIdentity(cmd, id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&first, "first-name", "", "first name")
	f.StringVar(&last, "last-name", "", "last name")
	f.StringVar(&mobile, "mobile", "", "mobile number")
	return cmd
}

// confirmCode reads codes until one verifies. Typing "resend" asks for a new code.
func confirmCode(cmd *cobra.Command) error {
	for attempt := 0; attempt < maxCodeAttempts; {
		code, err := rt.prompt(cmd, "Code (or 'resend'): ")
		if err != nil {
			rt.session.CancelChallenge()
			return err
		}

		if strings.EqualFold(code, "resend") {
			ch, err := rt.session.ResendOTP(cmd.Context())
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "new code sent to %s\n", ch.Contact)
			continue
		}

		err = rt.session.VerifyOTP(cmd.Context(), code)
		if err == nil {
			return nil
		}
		switch xerrors.KindOf(err) {
		case xerrors.KindValidationFailure, xerrors.KindRejected:
			attempt++
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		default:
			return err
		}
	}
	rt.session.CancelChallenge()
	return errors.New("too many failed attempts")
}

func printIdentity(cmd *cobra.Command, id *auth.Identity) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s <%s>\n", id.DisplayName, id.Email)
	fmt.Fprintf(out, "  id:     %s\n", id.ID)
	if id.Mobile != "" {
		verified := ""
		if id.MobileVerified {
			verified = " (verified)"
		}
		fmt.Fprintf(out, "  mobile: %s%s\n", id.Mobile, verified)
	}
}
