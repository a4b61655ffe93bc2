package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "dpod.v1.Extraction"

// Full method names, as seen by interceptors and clients.
const (
	MethodProcessDocument = "/" + serviceName + "/ProcessDocument"
	MethodProcessFile     = "/" + serviceName + "/ProcessFile"
	MethodLookupLedger    = "/" + serviceName + "/LookupLedger"
)

// ExtractionServer is the dpod.v1.Extraction service. Messages are
// google.protobuf.Struct so the service needs no generated code.
type ExtractionServer interface {
	ProcessDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LookupLedger(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterExtractionServer attaches srv to s.
func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&extractionServiceDesc, srv)
}

var extractionServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessDocument", Handler: unaryHandler(MethodProcessDocument, ExtractionServer.ProcessDocument)},
		{MethodName: "ProcessFile", Handler: unaryHandler(MethodProcessFile, ExtractionServer.ProcessFile)},
		{MethodName: "LookupLedger", Handler: unaryHandler(MethodLookupLedger, ExtractionServer.LookupLedger)},
	},
	Streams: []grpc.StreamDesc{},
}

type structMethod func(ExtractionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExtractionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExtractionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls dpod.v1.Extraction over cc.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ProcessDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodProcessDocument, in, opts...)
}

func (c *Client) ProcessFile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodProcessFile, in, opts...)
}

func (c *Client) LookupLedger(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodLookupLedger, in, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
