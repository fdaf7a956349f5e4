package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"riftbound/internal/deck"
	"riftbound/pkg/models"
)

const serviceName = "riftbound.deck.v1.DeckService"

type ValidateDeckRequest struct {
	Deck deck.Input `json:"deck"`
}

type ValidateDeckResponse struct {
	Report deck.Report `json:"report"`
}

type ParseDeckCodeRequest struct {
	Code string `json:"code"`
}

type ParseDeckCodeResponse struct {
	Format   string              `json:"format"`
	Entries  []deck.CodeCount    `json:"entries"`
	Cards    []deck.ResolvedCard `json:"cards"`
	NotFound []string            `json:"not_found"`
}

// GetCardRequest looks a card up by id, or by code when id is zero.
type GetCardRequest struct {
	ID   int64  `json:"id,omitempty"`
	Code string `json:"card_code,omitempty"`
}

type GetCardResponse struct {
	Card models.Card `json:"card"`
}

type DeckServiceServer interface {
	ValidateDeck(context.Context, *ValidateDeckRequest) (*ValidateDeckResponse, error)
	ParseDeckCode(context.Context, *ParseDeckCodeRequest) (*ParseDeckCodeResponse, error)
	GetCard(context.Context, *GetCardRequest) (*GetCardResponse, error)
}

func RegisterDeckServiceServer(s grpc.ServiceRegistrar, srv DeckServiceServer) {
	s.RegisterService(&DeckServiceDesc, srv)
}

// unary adapts a typed method to a grpc.MethodDesc handler.
func unary[Req any, Resp any](method string, call func(DeckServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DeckServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DeckServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var DeckServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DeckServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ValidateDeck", DeckServiceServer.ValidateDeck),
		unary("ParseDeckCode", DeckServiceServer.ParseDeckCode),
		unary("GetCard", DeckServiceServer.GetCard),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "riftbound/deck/v1/deck.proto",
}

// DeckServiceClient calls DeckService over any client connection.
type DeckServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDeckServiceClient(cc grpc.ClientConnInterface) *DeckServiceClient {
	return &DeckServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DeckServiceClient) ValidateDeck(ctx context.Context, in *ValidateDeckRequest, opts ...grpc.CallOption) (*ValidateDeckResponse, error) {
	return invoke[ValidateDeckResponse](ctx, c.cc, "ValidateDeck", in, opts)
}

func (c *DeckServiceClient) ParseDeckCode(ctx context.Context, in *ParseDeckCodeRequest, opts ...grpc.CallOption) (*ParseDeckCodeResponse, error) {
	return invoke[ParseDeckCodeResponse](ctx, c.cc, "ParseDeckCode", in, opts)
}

func (c *DeckServiceClient) GetCard(ctx context.Context, in *GetCardRequest, opts ...grpc.CallOption) (*GetCardResponse, error) {
	return invoke[GetCardResponse](ctx, c.cc, "GetCard", in, opts)
}
