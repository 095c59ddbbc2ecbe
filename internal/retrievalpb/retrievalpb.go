// Package retrievalpb defines the wire messages and service plumbing for the
// retrieval engine's gRPC surface: Search, MultiQuerySearch, SessionSearch,
// and HealthCheck. No .proto source exists for this domain to regenerate
// these from, so the types below are hand-authored in the shape protoc
// would produce rather than fabricated as a separate wire format; replace
// with protoc-generated code once a .proto definition exists.
package retrievalpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ context.Context
var _ grpc.ClientConnInterface

const _ = grpc.SupportPackageIsVersion7

// SearchRequest is shared by the Search and MultiQuerySearch RPCs: both
// operate on the same request/response shape as internal/search.Service.
type SearchRequest struct {
	Query              string `protobuf:"bytes,1,opt,name=query,proto3" json:"query,omitempty"`
	TenantId           string `protobuf:"bytes,2,opt,name=tenant_id,json=tenantId,proto3" json:"tenant_id,omitempty"`
	SessionId          string `protobuf:"bytes,3,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	Type               string `protobuf:"bytes,4,opt,name=type,proto3" json:"type,omitempty"`
	Limit              int32  `protobuf:"varint,5,opt,name=limit,proto3" json:"limit,omitempty"`
	Strategy           string `protobuf:"bytes,6,opt,name=strategy,proto3" json:"strategy,omitempty"`
	EnableReranking    bool   `protobuf:"varint,7,opt,name=enable_reranking,json=enableReranking,proto3" json:"enable_reranking,omitempty"`
	RerankTier         string `protobuf:"bytes,8,opt,name=rerank_tier,json=rerankTier,proto3" json:"rerank_tier,omitempty"`
	RerankFallbackTier string `protobuf:"bytes,9,opt,name=rerank_fallback_tier,json=rerankFallbackTier,proto3" json:"rerank_fallback_tier,omitempty"`
}

// SearchResult mirrors a single search.Result.
type SearchResult struct {
	Id               string  `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Content          string  `protobuf:"bytes,2,opt,name=content,proto3" json:"content,omitempty"`
	Score            float32 `protobuf:"fixed32,3,opt,name=score,proto3" json:"score,omitempty"`
	FusedScore       float32 `protobuf:"fixed32,4,opt,name=fused_score,json=fusedScore,proto3" json:"fused_score,omitempty"`
	RerankerScore    float32 `protobuf:"fixed32,5,opt,name=reranker_score,json=rerankerScore,proto3" json:"reranker_score,omitempty"`
	HasRerankerScore bool    `protobuf:"varint,6,opt,name=has_reranker_score,json=hasRerankerScore,proto3" json:"has_reranker_score,omitempty"`
	RerankTier       string  `protobuf:"bytes,7,opt,name=rerank_tier,json=rerankTier,proto3" json:"rerank_tier,omitempty"`
	SessionId        string  `protobuf:"bytes,8,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	Type             string  `protobuf:"bytes,9,opt,name=type,proto3" json:"type,omitempty"`
	Degraded         bool    `protobuf:"varint,10,opt,name=degraded,proto3" json:"degraded,omitempty"`
	DegradedReason   string  `protobuf:"bytes,11,opt,name=degraded_reason,json=degradedReason,proto3" json:"degraded_reason,omitempty"`
}

// SearchResponse mirrors search.Response.
type SearchResponse struct {
	Query          string          `protobuf:"bytes,1,opt,name=query,proto3" json:"query,omitempty"`
	Strategy       string          `protobuf:"bytes,2,opt,name=strategy,proto3" json:"strategy,omitempty"`
	Results        []*SearchResult `protobuf:"bytes,3,rep,name=results,proto3" json:"results,omitempty"`
	Degraded       bool            `protobuf:"varint,4,opt,name=degraded,proto3" json:"degraded,omitempty"`
	DegradedReason string          `protobuf:"bytes,5,opt,name=degraded_reason,json=degradedReason,proto3" json:"degraded_reason,omitempty"`
}

// SessionSearchRequest is the request for the session-aware retriever.
type SessionSearchRequest struct {
	Query    string `protobuf:"bytes,1,opt,name=query,proto3" json:"query,omitempty"`
	TenantId string `protobuf:"bytes,2,opt,name=tenant_id,json=tenantId,proto3" json:"tenant_id,omitempty"`
}

// SessionSearchResult mirrors a single session.Result.
type SessionSearchResult struct {
	Id               string  `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Content          string  `protobuf:"bytes,2,opt,name=content,proto3" json:"content,omitempty"`
	Score            float32 `protobuf:"fixed32,3,opt,name=score,proto3" json:"score,omitempty"`
	Type             string  `protobuf:"bytes,4,opt,name=type,proto3" json:"type,omitempty"`
	SessionId        string  `protobuf:"bytes,5,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	SessionSummary   string  `protobuf:"bytes,6,opt,name=session_summary,json=sessionSummary,proto3" json:"session_summary,omitempty"`
	SessionScore     float32 `protobuf:"fixed32,7,opt,name=session_score,json=sessionScore,proto3" json:"session_score,omitempty"`
	RerankerScore    float32 `protobuf:"fixed32,8,opt,name=reranker_score,json=rerankerScore,proto3" json:"reranker_score,omitempty"`
	HasRerankerScore bool    `protobuf:"varint,9,opt,name=has_reranker_score,json=hasRerankerScore,proto3" json:"has_reranker_score,omitempty"`
	RerankTier       string  `protobuf:"bytes,10,opt,name=rerank_tier,json=rerankTier,proto3" json:"rerank_tier,omitempty"`
	Degraded         bool    `protobuf:"varint,11,opt,name=degraded,proto3" json:"degraded,omitempty"`
	DegradedReason   string  `protobuf:"bytes,12,opt,name=degraded_reason,json=degradedReason,proto3" json:"degraded_reason,omitempty"`
}

// SessionSearchResponse wraps the ranked turns the session retriever returns.
type SessionSearchResponse struct {
	Results []*SessionSearchResult `protobuf:"bytes,1,rep,name=results,proto3" json:"results,omitempty"`
}

// HealthCheckRequest carries no fields; health is queried unconditionally.
type HealthCheckRequest struct{}

// HealthCheckResponse reports vector-store reachability.
type HealthCheckResponse struct {
	Healthy bool   `protobuf:"varint,1,opt,name=healthy,proto3" json:"healthy,omitempty"`
	Message string `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

// RetrievalServiceClient is the client API for RetrievalService.
type RetrievalServiceClient interface {
	Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error)
	MultiQuerySearch(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error)
	SessionSearch(ctx context.Context, in *SessionSearchRequest, opts ...grpc.CallOption) (*SessionSearchResponse, error)
	HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error)
}

type retrievalServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRetrievalServiceClient wraps a ClientConn in the RetrievalServiceClient API.
func NewRetrievalServiceClient(cc grpc.ClientConnInterface) RetrievalServiceClient {
	return &retrievalServiceClient{cc}
}

func (c *retrievalServiceClient) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.cc.Invoke(ctx, "/retrieval.RetrievalService/Search", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *retrievalServiceClient) MultiQuerySearch(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.cc.Invoke(ctx, "/retrieval.RetrievalService/MultiQuerySearch", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *retrievalServiceClient) SessionSearch(ctx context.Context, in *SessionSearchRequest, opts ...grpc.CallOption) (*SessionSearchResponse, error) {
	out := new(SessionSearchResponse)
	if err := c.cc.Invoke(ctx, "/retrieval.RetrievalService/SessionSearch", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *retrievalServiceClient) HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*HealthCheckResponse, error) {
	out := new(HealthCheckResponse)
	if err := c.cc.Invoke(ctx, "/retrieval.RetrievalService/HealthCheck", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RetrievalServiceServer is the server API for RetrievalService.
type RetrievalServiceServer interface {
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	MultiQuerySearch(context.Context, *SearchRequest) (*SearchResponse, error)
	SessionSearch(context.Context, *SessionSearchRequest) (*SessionSearchResponse, error)
	HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error)
}

// UnimplementedRetrievalServiceServer can be embedded to satisfy forward
// compatibility with future RPCs added to RetrievalServiceServer.
type UnimplementedRetrievalServiceServer struct{}

func (UnimplementedRetrievalServiceServer) Search(context.Context, *SearchRequest) (*SearchResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Search not implemented")
}

func (UnimplementedRetrievalServiceServer) MultiQuerySearch(context.Context, *SearchRequest) (*SearchResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method MultiQuerySearch not implemented")
}

func (UnimplementedRetrievalServiceServer) SessionSearch(context.Context, *SessionSearchRequest) (*SessionSearchResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SessionSearch not implemented")
}

func (UnimplementedRetrievalServiceServer) HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method HealthCheck not implemented")
}

// RegisterRetrievalServiceServer registers srv on s under the
// retrieval.RetrievalService name.
func RegisterRetrievalServiceServer(s *grpc.Server, srv RetrievalServiceServer) {
	s.RegisterService(&retrievalServiceServiceDesc, srv)
}

func _RetrievalService_Search_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RetrievalServiceServer).Search(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/retrieval.RetrievalService/Search"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RetrievalServiceServer).Search(ctx, req.(*SearchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _RetrievalService_MultiQuerySearch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RetrievalServiceServer).MultiQuerySearch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/retrieval.RetrievalService/MultiQuerySearch"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RetrievalServiceServer).MultiQuerySearch(ctx, req.(*SearchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _RetrievalService_SessionSearch_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SessionSearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RetrievalServiceServer).SessionSearch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/retrieval.RetrievalService/SessionSearch"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RetrievalServiceServer).SessionSearch(ctx, req.(*SessionSearchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _RetrievalService_HealthCheck_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HealthCheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RetrievalServiceServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/retrieval.RetrievalService/HealthCheck"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RetrievalServiceServer).HealthCheck(ctx, req.(*HealthCheckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var retrievalServiceServiceDesc = grpc.ServiceDesc{
	ServiceName: "retrieval.RetrievalService",
	HandlerType: (*RetrievalServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Search", Handler: _RetrievalService_Search_Handler},
		{MethodName: "MultiQuerySearch", Handler: _RetrievalService_MultiQuerySearch_Handler},
		{MethodName: "SessionSearch", Handler: _RetrievalService_SessionSearch_Handler},
		{MethodName: "HealthCheck", Handler: _RetrievalService_HealthCheck_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "retrieval.proto",
}
