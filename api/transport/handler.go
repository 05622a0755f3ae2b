// Copyright (c) 2025 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package transport

// ResponseHandler turns the outcome of a call into a result.
//
// Exactly one of the two methods is called for a call. Errors returned by
// either method are passed back to the caller unchanged.
type ResponseHandler interface {
	// Handle is called with the response that ends the call.
	Handle(req *Request, res *Response) (interface{}, error)

	// HandleException is called when the call ends without a usable
	// response: the transport failed on the last attempt, the pool was
	// empty, or the call was canceled.
	HandleException(req *Request, err error) (interface{}, error)
}

// HandlerFuncs builds a ResponseHandler from functions. A nil OnResponse
// returns the response itself; a nil OnError returns the error.
type HandlerFuncs struct {
	OnResponse func(*Request, *Response) (interface{}, error)
	OnError    func(*Request, error) (interface{}, error)
}

var _ ResponseHandler = HandlerFuncs{}

// Handle calls OnResponse.
func (h HandlerFuncs) Handle(req *Request, res *Response) (interface{}, error) {
	if h.OnResponse == nil {
		return res, nil
	}
	return h.OnResponse(req, res)
}

// HandleException calls OnError.
func (h HandlerFuncs) HandleException(req *Request, err error) (interface{}, error) {
	if h.OnError == nil {
		return nil, err
	}
	return h.OnError(req, err)
}
