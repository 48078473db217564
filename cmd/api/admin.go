package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/repository"
	"github.com/spec-kit/blog-service/internal/service"
)

func createAdminCmd() *cobra.Command {
	var req dto.SignupRequest
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create an administrator account.

Signup over HTTP always creates regular users; this is the only way to
obtain the admin role. The password is read from BLOG_ADMIN_PASSWORD
when --password is omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("BLOG_ADMIN_PASSWORD")
			}
			if req.Password == "" {
				return errors.New("a password is required (--password or BLOG_ADMIN_PASSWORD)")
			}
			req.Normalize()
			if err := dto.Validate(req); err != nil {
				return err
			}

			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			authService := service.NewAuthService(service.AuthDependencies{
				UserRepo:   repository.NewUserRepository(rt.pg.PoolHandle()),
				BcryptCost: rt.cfg.Auth.BcryptCost,
				Logger:     rt.logger,
			})
			user, err := authService.CreateAdmin(cmd.Context(), service.SignupInput{
				Username: req.Username,
				Email:    req.Email,
				Password: req.Password,
			})
			if err != nil {
				return err
			}
			rt.logger.Info("admin created", zap.String("user_id", user.ID), zap.String("email", user.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "admin", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Password, "password", "", "login password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
