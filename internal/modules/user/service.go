// README: User service: specific users, driver notes, ID documents, recommendations and push tokens.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"courier/internal/modules/api"
	"courier/internal/modules/entity"
	"courier/internal/types"
)

const (
	ActionGetSpecific          = "GET_SPECIFIC_USER"
	ActionCreateNote           = "CREATE_USER_NOTE"
	ActionHideNote             = "HIDE_USER_NOTE"
	ActionUnhideNote           = "UNHIDE_USER_NOTE"
	ActionGetAllNotes          = "GET_ALL_USER_NOTES"
	ActionGetIDDocuments       = "GET_ALL_USER_ID_DOCUMENTS"
	ActionGetRecommendations   = "GET_ALL_USER_MEDICAL_RECOMMENDATIONS"
	ActionRegisterPushToken    = "REGISTER_PUSH_TOKEN"
	ActionGetLoggedInUserInfo  = "GET_LOGGED_IN_USER_INFO"
	loggedInUserInfoEndPoint   = "users/me"
	specificUserEndPointFormat = "user/%d"
)

var (
	ErrEmptyNote  = errors.New("note text is empty")
	ErrEmptyToken = errors.New("push token is empty")
)

type Service struct {
	api    api.Dispatcher
	logger *slog.Logger
}

func NewService(d api.Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: d, logger: logger}
}

func GetIntent(id types.ID) api.Intent {
	return api.Get(ActionGetSpecific, fmt.Sprintf(specificUserEndPointFormat, id), entity.One(entity.Users))
}

// LoggedInUserIntent fetches the user the current access token belongs to.
func LoggedInUserIntent() api.Intent {
	in := api.Get(ActionGetLoggedInUserInfo, loggedInUserInfoEndPoint, entity.One(entity.Users))
	in.Effect = api.EffectLoggedInUser
	return in
}

func (s *Service) Get(ctx context.Context, id types.ID) api.Event {
	return s.api.Dispatch(ctx, GetIntent(id))
}

type CreateNoteCommand struct {
	UserID   types.ID `json:"userId"`
	DriverID types.ID `json:"dsprDriverId"`
	Note     string   `json:"note"`
}

type noteBody struct {
	User       api.Ref  `json:"user"`
	DsprDriver *api.Ref `json:"dsprDriver,omitempty"`
	Note       string   `json:"note"`
}

func (s *Service) CreateNote(ctx context.Context, cmd CreateNoteCommand) (api.Event, error) {
	note := strings.TrimSpace(cmd.Note)
	if note == "" {
		return api.Event{}, ErrEmptyNote
	}
	body := noteBody{User: api.Ref{ID: cmd.UserID}, Note: note}
	if cmd.DriverID.Valid() {
		body.DsprDriver = &api.Ref{ID: cmd.DriverID}
	}
	return s.api.Dispatch(ctx, api.Post(ActionCreateNote, "user/note", body, entity.One(entity.UserNotes))), nil
}

func (s *Service) HideNote(ctx context.Context, noteID types.ID) api.Event {
	return s.api.Dispatch(ctx, api.Post(ActionHideNote, "user/note/hide", api.Ref{ID: noteID}, entity.One(entity.UserNotes)))
}

func (s *Service) UnhideNote(ctx context.Context, noteID types.ID) api.Event {
	return s.api.Dispatch(ctx, api.Post(ActionUnhideNote, "user/note/unhide", api.Ref{ID: noteID}, entity.One(entity.UserNotes)))
}

// The bulk fetches below replace the user's rows of their table: any row of
// that user the server no longer returns disappears from the cache, and the
// user's own list is rewritten to the returned ids.

func (s *Service) GetAllNotes(ctx context.Context, userID types.ID) api.Event {
	return s.api.Dispatch(ctx, bulk(ActionGetAllNotes, userID, "notes", entity.UserNotes))
}

func (s *Service) GetAllIDDocuments(ctx context.Context, userID types.ID) api.Event {
	return s.api.Dispatch(ctx, bulk(ActionGetIDDocuments, userID, "identification_documents", entity.UserIDDocuments))
}

func (s *Service) GetAllMedicalRecommendations(ctx context.Context, userID types.ID) api.Event {
	return s.api.Dispatch(ctx, bulk(ActionGetRecommendations, userID, "medical_recommendations", entity.MedicalRecommendations))
}

func bulk(action string, userID types.ID, resource string, key entity.Key) api.Intent {
	in := api.Get(action, fmt.Sprintf("user/%d/%s", userID, resource), entity.ArrayOf(key))
	in.Replace = []entity.Scope{entity.OwnedBy(key, userID)}
	return in
}

type pushTokenBody struct {
	Token string `json:"token"`
}

// RegisterPushToken forwards the device push token; the response carries no
// entities.
func (s *Service) RegisterPushToken(ctx context.Context, token string) (api.Event, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return api.Event{}, ErrEmptyToken
	}
	ev := s.api.Dispatch(ctx, api.Post(ActionRegisterPushToken, "user/pushToken", pushTokenBody{Token: token}, nil))
	if ev.OK() {
		s.logger.Info("push token registered")
	}
	return ev, nil
}
