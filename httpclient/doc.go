// Package httpclient is the HTTP client shared by the REST provider
// adapters and image downloads.
//
// An Adapter wraps one http.Client with a base URL, default headers and
// authentication. Non-2xx responses are returned together with a classified
// *Error whose body can be inspected with BodyMessage:
//
//	client, _ := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.stability.ai",
//	    Timeout: 30 * time.Second,
//	    Auth:    httpclient.BearerAuth(key),
//	})
//
//	resp, err := httpclient.Post[generation](client, ctx, "/v1/generation/"+engine+"/text-to-image", body)
//	if err != nil {
//	    log.Error(httpclient.BodyMessage(err, "message"))
//	}
//
// Multipart forms are sent by passing a *MultipartBody as the request body.
package httpclient
