package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/modules/api"
	"courier/internal/modules/entity"
	"courier/internal/types"
)

type fakeDispatcher struct {
	intents []api.Intent
}

func (f *fakeDispatcher) Dispatch(_ context.Context, in api.Intent) api.Event {
	f.intents = append(f.intents, in)
	return api.Event{Action: in.Action, Kind: api.KindSuccess}
}

func TestBulkFetchesReplaceTheUsersRows(t *testing.T) {
	d := &fakeDispatcher{}
	svc := NewService(d, nil)
	ctx := context.Background()

	svc.GetAllNotes(ctx, 11)
	svc.GetAllIDDocuments(ctx, 11)
	svc.GetAllMedicalRecommendations(ctx, 11)

	tests := []struct {
		endPoint string
		key      entity.Key
	}{
		{"user/11/notes", entity.UserNotes},
		{"user/11/identification_documents", entity.UserIDDocuments},
		{"user/11/medical_recommendations", entity.MedicalRecommendations},
	}
	require.Len(t, d.intents, len(tests))
	for i, tt := range tests {
		in := d.intents[i]
		assert.Equal(t, tt.endPoint, in.EndPoint)
		assert.Equal(t, []entity.Scope{{Key: tt.key, Field: "user", Owner: 11}}, in.Replace)
		require.NotNil(t, in.Schema)
		assert.True(t, in.Schema.Many)
		assert.Equal(t, tt.key, in.Schema.Key)
	}
}

func TestCreateNote(t *testing.T) {
	d := &fakeDispatcher{}
	svc := NewService(d, nil)

	_, err := svc.CreateNote(context.Background(), CreateNoteCommand{UserID: 11, DriverID: 7, Note: "  gate code 1234 "})
	require.NoError(t, err)
	body := d.intents[0].Body.(noteBody)
	assert.Equal(t, "gate code 1234", body.Note)
	assert.Equal(t, types.ID(11), body.User.ID)
	require.NotNil(t, body.DsprDriver)
	assert.Equal(t, types.ID(7), body.DsprDriver.ID)

	_, err = svc.CreateNote(context.Background(), CreateNoteCommand{UserID: 11, Note: "   "})
	assert.ErrorIs(t, err, ErrEmptyNote)
	assert.Len(t, d.intents, 1)
}

func TestHideAndUnhideNote(t *testing.T) {
	d := &fakeDispatcher{}
	svc := NewService(d, nil)
	svc.HideNote(context.Background(), 4)
	svc.UnhideNote(context.Background(), 4)

	assert.Equal(t, "user/note/hide", d.intents[0].EndPoint)
	assert.Equal(t, "user/note/unhide", d.intents[1].EndPoint)
	assert.Equal(t, api.Ref{ID: 4}, d.intents[1].Body)
}

func TestRegisterPushToken(t *testing.T) {
	d := &fakeDispatcher{}
	svc := NewService(d, nil)

	ev, err := svc.RegisterPushToken(context.Background(), "ExponentPushToken[abc]")
	require.NoError(t, err)
	assert.True(t, ev.OK())
	assert.Nil(t, d.intents[0].Schema)
	assert.Equal(t, pushTokenBody{Token: "ExponentPushToken[abc]"}, d.intents[0].Body)

	_, err = svc.RegisterPushToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestLoggedInUserIntent(t *testing.T) {
	in := LoggedInUserIntent()
	assert.Equal(t, api.EffectLoggedInUser, in.Effect)
	assert.Equal(t, "users/me", in.EndPoint)
	assert.Equal(t, "user/11", GetIntent(11).EndPoint)
}
