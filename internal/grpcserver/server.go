package grpcserver

import (
	"context"
	"fmt"
	"strings"

	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"riftbound/internal/catalog"
	"riftbound/internal/deck"
	"riftbound/internal/errors"
	"riftbound/pkg/logging"
	"riftbound/pkg/models"
)

// Server implements DeckService against a catalog source.
type Server struct {
	Catalog catalog.Source
}

func NewServer(cat catalog.Source) *Server {
	return &Server{Catalog: cat}
}

func (s *Server) ValidateDeck(ctx context.Context, req *ValidateDeckRequest) (*ValidateDeckResponse, error) {
	if req == nil {
		return nil, errors.ToGRPCError(errors.InvalidArgument("request required"))
	}
	snap, err := s.Catalog.Snapshot(ctx, req.Deck.CardIDs())
	if err != nil {
		return nil, errors.ToGRPCError(errors.Wrap(err, "failed to load cards"))
	}
	return &ValidateDeckResponse{Report: deck.Validate(req.Deck, snap)}, nil
}

func (s *Server) ParseDeckCode(ctx context.Context, req *ParseDeckCodeRequest) (*ParseDeckCodeResponse, error) {
	if req == nil || strings.TrimSpace(req.Code) == "" {
		return nil, errors.ToGRPCError(errors.InvalidArgument("code required"))
	}

	entries := deck.ParseDeckCode(req.Code)
	if len(entries) == 0 {
		return nil, errors.ToGRPCError(errors.InvalidArgument("No valid cards found in the deck code"))
	}
	snap, err := s.Catalog.SnapshotCodes(ctx, deck.Codes(entries))
	if err != nil {
		return nil, errors.ToGRPCError(errors.Wrap(err, "failed to load cards"))
	}
	res := deck.Resolve(entries, snap)

	format := "standard"
	if deck.IsTTSFormat(req.Code) {
		format = "tts"
	}
	return &ParseDeckCodeResponse{
		Format:   format,
		Entries:  entries,
		Cards:    res.Cards,
		NotFound: res.NotFound,
	}, nil
}

func (s *Server) GetCard(ctx context.Context, req *GetCardRequest) (*GetCardResponse, error) {
	if req == nil || (req.ID <= 0 && strings.TrimSpace(req.Code) == "") {
		return nil, errors.ToGRPCError(errors.InvalidArgument("id or card_code required"))
	}

	var (
		card *models.Card
		err  error
	)
	if req.ID > 0 {
		card, err = s.Catalog.GetByID(ctx, req.ID)
	} else {
		card, err = s.Catalog.GetByCode(ctx, req.Code)
	}
	if err != nil {
		return nil, errors.ToGRPCError(errors.Wrap(err, "failed to load card"))
	}
	if card == nil {
		return nil, errors.ToGRPCError(errors.NotFound("Card not found"))
	}
	return &GetCardResponse{Card: *card}, nil
}

// NewGRPCServer builds a server with logging and panic recovery
// interceptors, the health service and DeckService registered.
func NewGRPCServer(svc DeckServiceServer, log logging.Logger) *grpc.Server {
	if log == nil {
		log = logging.NewNop()
	}
	logFn := grpc_logging.LoggerFunc(func(ctx context.Context, level grpc_logging.Level, msg string, fields ...any) {
		f := make(map[string]any, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			f[fmt.Sprint(fields[i])] = fields[i+1]
		}
		switch level {
		case grpc_logging.LevelDebug:
			log.Debug(msg, f)
		case grpc_logging.LevelWarn:
			log.Warn(msg, f)
		case grpc_logging.LevelError:
			log.Error(msg, nil, f)
		default:
			log.Info(msg, f)
		}
	})
	recoverFn := grpc_recovery.WithRecoveryHandler(func(p any) error {
		log.Error("grpc handler panic", fmt.Errorf("%v", p), nil)
		return errors.ToGRPCError(errors.Internal("internal error"))
	})

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_logging.UnaryServerInterceptor(logFn, grpc_logging.WithLogOnEvents(grpc_logging.FinishCall)),
			grpc_recovery.UnaryServerInterceptor(recoverFn),
		),
		grpc.ChainStreamInterceptor(
			grpc_logging.StreamServerInterceptor(logFn, grpc_logging.WithLogOnEvents(grpc_logging.FinishCall)),
			grpc_recovery.StreamServerInterceptor(recoverFn),
		),
	)
	RegisterDeckServiceServer(srv, svc)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return srv
}
