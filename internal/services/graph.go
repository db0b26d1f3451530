package services

// graph.go reads user profiles and photos from Microsoft Graph using the application identity.

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	OperationGetProfile = "getProfile"
	OperationGetPhoto   = "getPhoto"
)

// photoVariants are tried in order, the first available wins
var photoVariants = []string{
	"/photo/$value",
	"/photos/648x648/$value",
	"/photos/240x240/$value",
	"/photos/96x96/$value",
}

const profileSelect = "id,displayName,givenName,surname,mail,userPrincipalName,jobTitle,preferredLanguage"

// DirectoryProfile is the subset of the Graph user resource used to build credential claims
type DirectoryProfile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	JobTitle          string `json:"jobTitle"`
	PreferredLanguage string `json:"preferredLanguage"`
}

// Photo is a user photo as returned by the directory
type Photo struct {
	Data        []byte
	ContentType string
}

// Directory looks up users by principal (object) id.
type Directory interface {
	// GetProfile returns the user's profile or ErrUserNotFound.
	GetProfile(ctx context.Context, userID string) (*DirectoryProfile, error)

	// GetPhoto returns the first available photo variant or ErrPhotoNotFound.
	GetPhoto(ctx context.Context, userID string) (*Photo, error)
}

// GraphDirectory is the Directory backed by Microsoft Graph.
type GraphDirectory struct {
	client *resty.Client
	tokens TokenProvider
	scope  string
	logger *slog.Logger
}

var _ Directory = (*GraphDirectory)(nil)

// NewGraphDirectory creates a Graph client for endpoint, e.g. https://graph.microsoft.com/v1.0
func NewGraphDirectory(endpoint, scope string, timeout time.Duration, tokens TokenProvider, logger *slog.Logger) *GraphDirectory {
	return &GraphDirectory{
		client: resty.New().
			SetBaseURL(strings.TrimRight(endpoint, "/")).
			SetTimeout(timeout),
		tokens: tokens,
		scope:  scope,
		logger: logger,
	}
}

func (g *GraphDirectory) GetProfile(ctx context.Context, userID string) (*DirectoryProfile, error) {
	token, err := g.tokens.Token(ctx, g.scope)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("$select", profileSelect).
		SetResult(&DirectoryProfile{}).
		Get(userPath(userID))
	if err != nil {
		return nil, &UpstreamError{Operation: OperationGetProfile, Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrUserNotFound
	case resp.IsError():
		return nil, &UpstreamError{Operation: OperationGetProfile, StatusCode: resp.StatusCode()}
	}

	profile, ok := resp.Result().(*DirectoryProfile)
	if !ok || profile == nil || profile.ID == "" {
		return nil, ErrUserNotFound
	}
	return profile, nil
}

// GetPhoto tries each photo variant in turn. Failures of individual variants are logged and
// the next variant is tried.
func (g *GraphDirectory) GetPhoto(ctx context.Context, userID string) (*Photo, error) {
	token, err := g.tokens.Token(ctx, g.scope)
	if err != nil {
		return nil, err
	}

	for _, variant := range photoVariants {
		resp, err := g.client.R().
			SetContext(ctx).
			SetAuthToken(token).
			Get(userPath(userID) + variant)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &UpstreamError{Operation: OperationGetPhoto, Err: ctx.Err()}
			}
			g.logger.Debug("photo variant request failed",
				slog.String("variant", variant),
				slog.String("error", err.Error()))
			continue
		}

		if resp.IsSuccess() && len(resp.Body()) > 0 {
			contentType := resp.Header().Get("Content-Type")
			if contentType == "" {
				contentType = "image/jpeg"
			}
			return &Photo{Data: resp.Body(), ContentType: contentType}, nil
		}

		g.logger.Debug("photo variant not available",
			slog.String("variant", variant),
			slog.Int("status", resp.StatusCode()))
	}

	return nil, ErrPhotoNotFound
}

func userPath(userID string) string {
	return "/users/" + url.PathEscape(userID)
}
