package httpclient

import "time"

// Request is a fully resolved request: every placeholder already substituted
// and the body encoded, ready to hand to the transport.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Clone returns an independent copy, so stored snapshots cannot be changed
// by later header edits.
func (r Request) Clone() Request {
	out := r
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// Response is an immutable snapshot of what came back for one request.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}
