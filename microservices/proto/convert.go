package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"chess_review/internal/domain"
	errs "chess_review/internal/errors"
)

// ToStruct carries v across the wire through its JSON form.
func ToStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func FromStruct(s *structpb.Struct, dst any) error {
	if s == nil {
		return errors.New("empty message")
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

type HealthRequest struct {
	Probe bool `json:"probe"`
}

type HealthResponse struct {
	Pool  domain.EngineHealth `json:"pool"`
	Probe *domain.ProbeResult `json:"probe,omitempty"`
}

// StatusFromError maps a domain error to a gRPC status.
func StatusFromError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrJobTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errs.IsEngineFailure(err):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// ErrorFromStatus is the inverse of StatusFromError on the client side.
func ErrorFromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", errs.ErrInternal, err)
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", errs.ErrInvalidInput, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", errs.ErrJobTimeout, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", errs.ErrEngineUnavailable, st.Message())
	default:
		return fmt.Errorf("%w: %s", errs.ErrInternal, st.Message())
	}
}
