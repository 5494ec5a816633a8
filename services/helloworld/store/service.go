//go:generate go run go.uber.org/mock/mockgen -source=service.go -destination=../../../mocks/mock_message_service.go -package=mocks
package helloworldstore

import (
	"context"

	"github.com/R3E-Network/greeter/internal/domain/message"
	"github.com/R3E-Network/greeter/internal/httputil"
)

// MessageService is the part of the message service the store drives.
// *helloworldclient.Service satisfies it.
type MessageService interface {
	ListAll(ctx context.Context) (*httputil.Envelope, error)
	GetByID(ctx context.Context, id string) (*httputil.Envelope, error)
	Create(ctx context.Context, input message.CreateInput) (*httputil.Envelope, error)
	Delete(ctx context.Context, id string) (*httputil.Envelope, error)
}
