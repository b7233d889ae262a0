package client

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const (
	SheetsScope = "https://www.googleapis.com/auth/spreadsheets"
	VisionScope = "https://www.googleapis.com/auth/cloud-vision"
)

// GoogleClientOptions returns client options for the Google REST APIs.
// An empty credentialsFile uses Application Default Credentials.
func GoogleClientOptions(ctx context.Context, credentialsFile string, scopes ...string) ([]option.ClientOption, error) {
	if credentialsFile != "" {
		return []option.ClientOption{
			option.WithCredentialsFile(credentialsFile),
			option.WithScopes(scopes...),
		}, nil
	}

	creds, err := google.FindDefaultCredentials(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("no google credentials configured: %w", err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}
