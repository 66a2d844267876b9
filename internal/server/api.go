package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sylly.v1.SyllabusService"

// Method names. Every method takes and returns a google.protobuf.Struct.
const (
	MethodGetState               = "GetState"
	MethodStartScan              = "StartScan"
	MethodSubmitPages            = "SubmitPages"
	MethodRetry                  = "Retry"
	MethodCancel                 = "Cancel"
	MethodApplyEdit              = "ApplyEdit"
	MethodSave                   = "Save"
	MethodRequestCalendarAccess  = "RequestCalendarAccess"
	MethodExportCalendar         = "ExportCalendar"
	MethodDismiss                = "Dismiss"
	MethodListCourses            = "ListCourses"
	MethodGetCourse              = "GetCourse"
	MethodAddAssignment          = "AddAssignment"
	MethodEditAssignment         = "EditAssignment"
	MethodSetAssignmentCompleted = "SetAssignmentCompleted"
	MethodDeleteAssignment       = "DeleteAssignment"
	MethodDeleteCourse           = "DeleteCourse"
	MethodDueOn                  = "DueOn"
	MethodExportXLSX             = "ExportXLSX"
	MethodGetCalendarSettings    = "GetCalendarSettings"
	MethodSetCalendarName        = "SetCalendarName"
	MethodResetCalendarAccess    = "ResetCalendarAccess"
)

// SyllabusServiceServer is the server API for sylly.v1.SyllabusService.
type SyllabusServiceServer interface {
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartScan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitPages(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Retry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Cancel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyEdit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Save(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestCalendarAccess(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportCalendar(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Dismiss(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCourses(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCourse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddAssignment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EditAssignment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetAssignmentCompleted(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAssignment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteCourse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DueOn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportXLSX(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCalendarSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetCalendarName(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetCalendarAccess(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(SyllabusServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SyllabusServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SyllabusServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod is the gRPC path of a method of the service.
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

// SyllabusService_ServiceDesc is the grpc.ServiceDesc for sylly.v1.SyllabusService.
var SyllabusService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyllabusServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetState, SyllabusServiceServer.GetState),
		unary(MethodStartScan, SyllabusServiceServer.StartScan),
		unary(MethodSubmitPages, SyllabusServiceServer.SubmitPages),
		unary(MethodRetry, SyllabusServiceServer.Retry),
		unary(MethodCancel, SyllabusServiceServer.Cancel),
		unary(MethodApplyEdit, SyllabusServiceServer.ApplyEdit),
		unary(MethodSave, SyllabusServiceServer.Save),
		unary(MethodRequestCalendarAccess, SyllabusServiceServer.RequestCalendarAccess),
		unary(MethodExportCalendar, SyllabusServiceServer.ExportCalendar),
		unary(MethodDismiss, SyllabusServiceServer.Dismiss),
		unary(MethodListCourses, SyllabusServiceServer.ListCourses),
		unary(MethodGetCourse, SyllabusServiceServer.GetCourse),
		unary(MethodAddAssignment, SyllabusServiceServer.AddAssignment),
		unary(MethodEditAssignment, SyllabusServiceServer.EditAssignment),
		unary(MethodSetAssignmentCompleted, SyllabusServiceServer.SetAssignmentCompleted),
		unary(MethodDeleteAssignment, SyllabusServiceServer.DeleteAssignment),
		unary(MethodDeleteCourse, SyllabusServiceServer.DeleteCourse),
		unary(MethodDueOn, SyllabusServiceServer.DueOn),
		unary(MethodExportXLSX, SyllabusServiceServer.ExportXLSX),
		unary(MethodGetCalendarSettings, SyllabusServiceServer.GetCalendarSettings),
		unary(MethodSetCalendarName, SyllabusServiceServer.SetCalendarName),
		unary(MethodResetCalendarAccess, SyllabusServiceServer.ResetCalendarAccess),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sylly/v1/syllabus.proto",
}

func RegisterSyllabusServiceServer(s grpc.ServiceRegistrar, srv SyllabusServiceServer) {
	s.RegisterService(&SyllabusService_ServiceDesc, srv)
}

// Client calls the service by method name.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with the given request fields. A nil map sends an
// empty message.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
