// Package platform holds the static registry of target publishing platforms
// and the shared request/response plumbing their adapters build on. All
// knowledge about one platform's wire protocol lives in that platform's
// adapter subpackage; this package only knows how to carry a request and
// read a response.
package platform

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ID is the symbolic key of one target platform.
type ID string

const (
	CSDN    ID = "csdn"
	CNBlogs ID = "cnblogs"
	Zhihu   ID = "zhihu"
	Toutiao ID = "toutiao"
)

// Descriptor is the static configuration of one platform. Descriptors are
// process-lifetime constants, looked up by id.
type Descriptor struct {
	ID            ID
	Name          string
	PublishURL    string
	LoginCheckURL string
}

var registry = []Descriptor{
	{
		ID:            CSDN,
		Name:          "CSDN",
		PublishURL:    "https://bizapi.csdn.net/blog-console-api/v3/mdeditor/saveArticle",
		LoginCheckURL: "https://passport.csdn.net/login",
	},
	{
		ID:            CNBlogs,
		Name:          "博客园",
		PublishURL:    "https://i.cnblogs.com/api/posts",
		LoginCheckURL: "https://www.cnblogs.com/ajax/blog/GetLoginStatus",
	},
	{
		ID:            Zhihu,
		Name:          "知乎",
		PublishURL:    "https://zhuanlan.zhihu.com/api/articles/drafts",
		LoginCheckURL: "https://www.zhihu.com/api/v4/me",
	},
	{
		ID:            Toutiao,
		Name:          "今日头条",
		PublishURL:    "https://mp.toutiao.com/mp/agw/article/publish",
		LoginCheckURL: "https://mp.toutiao.com/api/author/get_user_info/",
	},
}

// Lookup returns the descriptor for id.
func Lookup(id ID) (Descriptor, bool) {
	for _, d := range registry {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// All returns every registered descriptor in registry order.
func All() []Descriptor {
	out := make([]Descriptor, len(registry))
	copy(out, registry)
	return out
}

// RequestKind distinguishes ordinary dispatchable requests from interactive
// flows the service cannot complete on the operator's behalf.
type RequestKind int

const (
	RequestStandard RequestKind = iota
	RequestInteractiveRedirect
)

// OutboundRequest is one fully specified publish attempt. It is built fresh
// per attempt and discarded after dispatch. Body carries a pre-serialized
// payload; JSONBody carries a structured payload that is serialized at
// dispatch time. At most one of the two is set.
type OutboundRequest struct {
	URL      string
	Method   string
	Header   http.Header
	Body     []byte
	JSONBody any
	Kind     RequestKind
}

// Payload returns the bytes to put on the wire.
func (r *OutboundRequest) Payload() ([]byte, error) {
	if r.JSONBody != nil {
		data, err := json.Marshal(r.JSONBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		return data, nil
	}
	return r.Body, nil
}
