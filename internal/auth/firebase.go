package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/imprimeturecuerdo/memorial-backend/config"
)

var defaultScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/datastore",
	"https://www.googleapis.com/auth/identitytoolkit",
}

// InitializeFirebase initializes the Firebase Admin SDK. A credentials file
// wins when configured; otherwise Application Default Credentials are used.
func InitializeFirebase(ctx context.Context, cfg *config.FirebaseConfig) (*firebase.App, *fbauth.Client, error) {
	opt, err := clientOption(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	return app, authClient, nil
}

func clientOption(ctx context.Context, cfg *config.FirebaseConfig) (option.ClientOption, error) {
	if cfg.CredentialsPath != "" {
		return option.WithCredentialsFile(cfg.CredentialsPath), nil
	}

	creds, err := google.FindDefaultCredentials(ctx, defaultScopes...)
	if err != nil {
		return nil, fmt.Errorf("no FIREBASE_CREDENTIALS_PATH and no default credentials: %w", err)
	}
	return option.WithCredentials(creds), nil
}
