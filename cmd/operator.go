package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/frahmantamala/hrm-access/internal/auth"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/spf13/cobra"
)

var (
	operatorUsername string
	operatorPassword string
)

// addOperatorFlags registers the credentials an administrative command logs
// in with. Every command acts through a regular session so the same
// capability checks and audit trail apply as over HTTP.
func addOperatorFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&operatorUsername, "operator", os.Getenv("HRM_OPERATOR"), "username to act as (env HRM_OPERATOR)")
	cmd.PersistentFlags().StringVar(&operatorPassword, "operator-password", os.Getenv("HRM_OPERATOR_PASSWORD"), "password of the operator (env HRM_OPERATOR_PASSWORD)")
}

func operatorSession(ctx context.Context, app *App) (*permission.Session, error) {
	if operatorUsername == "" || operatorPassword == "" {
		return nil, errors.New("operator credentials required: set --operator and --operator-password")
	}
	result, err := app.Auth.Login(ctx, auth.LoginDTO{Username: operatorUsername, Password: operatorPassword})
	if err != nil {
		return nil, err
	}
	return result.Session, nil
}

// withOperator opens the app, logs the operator in and runs fn.
func withOperator(cmd *cobra.Command, fn func(ctx context.Context, app *App, session *permission.Session) error) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	session, err := operatorSession(ctx, app)
	if err != nil {
		return err
	}
	return fn(ctx, app, session)
}
