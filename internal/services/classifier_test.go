package services

import (
	"context"
	"testing"

	"wa-relay-server/internal/db"
	"wa-relay-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := NewClassifier(stubLookup{"9876543210": true})
	ctx := context.Background()

	tests := []struct {
		name      string
		msg       models.InboundMessage
		wantClass models.PartitionClass
		wantKind  MessageKind
	}{
		{
			name:      "registered sender text",
			msg:       models.InboundMessage{From: "919876543210", Type: "text", Text: &models.InboundText{Body: "hi"}, Timestamp: "1772359200"},
			wantClass: models.PartitionRegistered,
			wantKind:  KindText,
		},
		{
			name:      "unknown sender text",
			msg:       models.InboundMessage{From: "911111111111", Type: "text", Text: &models.InboundText{Body: "help"}},
			wantClass: models.PartitionSupport,
			wantKind:  KindText,
		},
		{
			name:      "registered sender image",
			msg:       models.InboundMessage{From: "919876543210", Type: "image", Image: &models.InboundMedia{ID: "media-1"}},
			wantClass: models.PartitionRegistered,
			wantKind:  KindImage,
		},
		{
			name:      "sticker",
			msg:       models.InboundMessage{From: "919876543210", Type: "sticker"},
			wantClass: models.PartitionRegistered,
			wantKind:  KindUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := classifier.Classify(ctx, tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantClass, c.Ref.Class)
			assert.Equal(t, PartitionKey(tt.msg.From), c.Ref.Key)
			assert.Equal(t, tt.wantKind, c.Kind)

			if tt.wantKind == KindText {
				require.NotNil(t, c.Record)
				assert.Equal(t, models.SenderUser, c.Record.From)
				assert.Equal(t, tt.msg.Text.Body, c.Record.Text)
				assert.Equal(t, models.MessageTypeText, c.Record.Type)
				assert.False(t, c.Record.Read)
			} else {
				assert.Nil(t, c.Record)
			}
			if tt.wantKind == KindImage {
				assert.Equal(t, "media-1", c.Media.ID)
			}
		})
	}
}

func TestClassifier_EmptySender(t *testing.T) {
	_, err := NewClassifier(stubLookup{}).Classify(context.Background(), models.InboundMessage{Type: "text"})
	assert.ErrorIs(t, err, ErrEmptySender)
}

func TestClassifier_StoreUnavailable(t *testing.T) {
	database := db.SetupTestDB(t)
	classifier := NewClassifier(database.Registrations())
	require.NoError(t, database.Close())

	_, err := classifier.Classify(context.Background(), models.InboundMessage{From: "919876543210", Type: "text", Text: &models.InboundText{Body: "hi"}})
	require.Error(t, err)
	assert.Equal(t, models.StoreUnavailable, models.StoreCode(err))
}
