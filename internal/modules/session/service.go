// README: Session service: OAuth token acquisition, login chain, preload and logout.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"courier/internal/modules/api"
	"courier/internal/modules/user"
)

const (
	ActionLogin    = "LOGIN"
	ActionAppToken = "GET_APP_ACCESS_TOKEN"

	TokenTypeUser = "USER"
	TokenTypeApp  = "APP"

	tokenEndPoint = "oauth/token"
)

var ErrMissingCredentials = errors.New("email and password are required")

// TokenState reads the token currently held by the root store.
type TokenState interface {
	AccessToken() string
}

type Service struct {
	api    api.Dispatcher
	sink   api.Sink
	state  TokenState
	secure SecureStore
	client api.Credentials
	logger *slog.Logger
}

// NewService wires the session service. client is the OAuth client
// identity sent as basic auth to the token endpoint.
func NewService(d api.Dispatcher, sink api.Sink, state TokenState, secure SecureStore, client api.Credentials, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: d, sink: sink, state: state, secure: secure, client: client, logger: logger}
}

func (s *Service) tokenIntent(action string, form url.Values) api.Intent {
	client := s.client
	return api.Intent{
		Action:    action,
		Method:    "POST",
		EndPoint:  tokenEndPoint,
		Form:      form,
		BasicAuth: &client,
		Effect:    api.EffectAccessToken,
	}
}

// Login acquires a user token with the password grant, persists it and then
// loads the logged-in user. The user fetch is skipped if the token fetch
// failed.
func (s *Service) Login(ctx context.Context, email, password string) ([]api.Event, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	form := url.Values{
		"grant_type": {"password"},
		"username":   {email},
		"password":   {password},
	}
	return api.Sequence{
		Policy: api.ShortCircuit,
		Steps: []api.Step{
			api.Then(s.tokenIntent(ActionLogin, form)),
			func(ctx context.Context) (api.Intent, bool) {
				s.persist(ctx, TokenTypeUser)
				return user.LoggedInUserIntent(), true
			},
		},
	}.Run(ctx, s.api), nil
}

// AppToken drops any session and acquires an application token with the
// client-credentials grant.
func (s *Service) AppToken(ctx context.Context) (api.Event, bool) {
	if err := s.Logout(ctx); err != nil {
		s.logger.Warn("clear secure store before app token", slog.Any("error", err))
	}
	if s.state.AccessToken() != "" {
		return api.Event{}, false
	}
	ev := s.api.Dispatch(ctx, s.tokenIntent(ActionAppToken, url.Values{"grant_type": {"client_credentials"}}))
	if ev.OK() {
		s.persist(ctx, TokenTypeApp)
	}
	return ev, true
}

// persist writes the token the store just accepted. Failures are logged;
// the in-memory session stays valid.
func (s *Service) persist(ctx context.Context, tokenType string) {
	token := s.state.AccessToken()
	if err := s.secure.Set(ctx, KeyAccessToken, token); err != nil {
		s.logger.Error("persist access token", slog.Any("error", err))
		return
	}
	if err := s.secure.Set(ctx, KeyAccessTokenType, tokenType); err != nil {
		s.logger.Error("persist access token type", slog.Any("error", err))
	}
}

// Preload restores a persisted token into the store. It reports false when
// nothing was persisted.
func (s *Service) Preload(ctx context.Context) (bool, error) {
	token, err := s.secure.Get(ctx, KeyAccessToken)
	if errors.Is(err, ErrNotFound) || (err == nil && token == "") {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.sink.Apply(api.Event{Action: api.ActionPreloadAccessToken, Kind: api.KindLocal, AccessToken: token})
	return true, nil
}

// TokenType returns the persisted token type, USER or APP.
func (s *Service) TokenType(ctx context.Context) (string, error) {
	return s.secure.Get(ctx, KeyAccessTokenType)
}

// Logout clears the secure store and resets the root state. The state is
// reset even when the store could not be cleared.
func (s *Service) Logout(ctx context.Context) error {
	err := errors.Join(
		s.secure.Delete(ctx, KeyAccessToken),
		s.secure.Delete(ctx, KeyAccessTokenType),
	)
	s.sink.Apply(api.Local(api.ActionLogout))
	return err
}
