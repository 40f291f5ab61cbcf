package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "whisperbox.v1.Messenger"

const (
	RegisterFullMethod    = "/" + ServiceName + "/Register"
	LoginFullMethod       = "/" + ServiceName + "/Login"
	PingFullMethod        = "/" + ServiceName + "/Ping"
	SearchUsersFullMethod = "/" + ServiceName + "/SearchUsers"
	SendFullMethod        = "/" + ServiceName + "/Send"
	GetThreadFullMethod   = "/" + ServiceName + "/GetThread"
	GetPreviewsFullMethod = "/" + ServiceName + "/GetPreviews"
	CheckMirrorFullMethod = "/" + ServiceName + "/CheckMirror"
	ListenFullMethod      = "/" + ServiceName + "/Listen"
)

// MessengerServer is implemented by the whisperbox server.
type MessengerServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	SearchUsers(context.Context, *SearchUsersRequest) (*SearchUsersResponse, error)
	Send(context.Context, *SendRequest) (*SendResponse, error)
	GetThread(context.Context, *GetThreadRequest) (*GetThreadResponse, error)
	GetPreviews(context.Context, *GetPreviewsRequest) (*GetPreviewsResponse, error)
	CheckMirror(context.Context, *CheckMirrorRequest) (*CheckMirrorResponse, error)
	Listen(*ListenRequest, grpc.ServerStreamingServer[Delivery]) error
}

func RegisterMessengerServer(s grpc.ServiceRegistrar, srv MessengerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary builds the method handler of one unary call.
func unary[Req, Resp any](fullMethod string, call func(MessengerServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MessengerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MessengerServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func listenHandler(srv any, stream grpc.ServerStream) error {
	in := new(ListenRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MessengerServer).Listen(in, &grpc.GenericServerStream[ListenRequest, Delivery]{ServerStream: stream})
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MessengerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(RegisterFullMethod, MessengerServer.Register)},
		{MethodName: "Login", Handler: unary(LoginFullMethod, MessengerServer.Login)},
		{MethodName: "Ping", Handler: unary(PingFullMethod, MessengerServer.Ping)},
		{MethodName: "SearchUsers", Handler: unary(SearchUsersFullMethod, MessengerServer.SearchUsers)},
		{MethodName: "Send", Handler: unary(SendFullMethod, MessengerServer.Send)},
		{MethodName: "GetThread", Handler: unary(GetThreadFullMethod, MessengerServer.GetThread)},
		{MethodName: "GetPreviews", Handler: unary(GetPreviewsFullMethod, MessengerServer.GetPreviews)},
		{MethodName: "CheckMirror", Handler: unary(CheckMirrorFullMethod, MessengerServer.CheckMirror)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Listen", Handler: listenHandler, ServerStreams: true},
	},
	Metadata: "whisperbox/v1/messenger",
}

// MessengerClient is the client side of whisperbox.v1.Messenger. Every call
// uses the JSON codec.
type MessengerClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	SearchUsers(ctx context.Context, in *SearchUsersRequest, opts ...grpc.CallOption) (*SearchUsersResponse, error)
	Send(ctx context.Context, in *SendRequest, opts ...grpc.CallOption) (*SendResponse, error)
	GetThread(ctx context.Context, in *GetThreadRequest, opts ...grpc.CallOption) (*GetThreadResponse, error)
	GetPreviews(ctx context.Context, in *GetPreviewsRequest, opts ...grpc.CallOption) (*GetPreviewsResponse, error)
	CheckMirror(ctx context.Context, in *CheckMirrorRequest, opts ...grpc.CallOption) (*CheckMirrorResponse, error)
	Listen(ctx context.Context, in *ListenRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Delivery], error)
}

type messengerClient struct {
	cc grpc.ClientConnInterface
}

func NewMessengerClient(cc grpc.ClientConnInterface) MessengerClient {
	return &messengerClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *messengerClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, RegisterFullMethod, in, opts)
}

func (c *messengerClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, LoginFullMethod, in, opts)
}

func (c *messengerClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, PingFullMethod, in, opts)
}

func (c *messengerClient) SearchUsers(ctx context.Context, in *SearchUsersRequest, opts ...grpc.CallOption) (*SearchUsersResponse, error) {
	return invoke[SearchUsersResponse](ctx, c.cc, SearchUsersFullMethod, in, opts)
}

func (c *messengerClient) Send(ctx context.Context, in *SendRequest, opts ...grpc.CallOption) (*SendResponse, error) {
	return invoke[SendResponse](ctx, c.cc, SendFullMethod, in, opts)
}

func (c *messengerClient) GetThread(ctx context.Context, in *GetThreadRequest, opts ...grpc.CallOption) (*GetThreadResponse, error) {
	return invoke[GetThreadResponse](ctx, c.cc, GetThreadFullMethod, in, opts)
}

func (c *messengerClient) GetPreviews(ctx context.Context, in *GetPreviewsRequest, opts ...grpc.CallOption) (*GetPreviewsResponse, error) {
	return invoke[GetPreviewsResponse](ctx, c.cc, GetPreviewsFullMethod, in, opts)
}

func (c *messengerClient) CheckMirror(ctx context.Context, in *CheckMirrorRequest, opts ...grpc.CallOption) (*CheckMirrorResponse, error) {
	return invoke[CheckMirrorResponse](ctx, c.cc, CheckMirrorFullMethod, in, opts)
}

func (c *messengerClient) Listen(ctx context.Context, in *ListenRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Delivery], error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], ListenFullMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[ListenRequest, Delivery]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
