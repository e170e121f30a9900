/*
Package mocker intercepts outbound HTTP requests in tests and answers them from registered
response plans.

An Engine is an http.RoundTripper. Activating it installs it into a hook (by default
http.DefaultTransport), after which every matching request is resolved against the engine's
registry and recorded in its ledger:

	e := mocker.New(ctx, mocker.Config{Hook: hook.Client(client)})
	err := e.Register(registry.GET, "http://example.com/", registry.Options{Body: "hi"})
	e.Run(t)

	res, err := client.Get("http://example.com/")

Requests for which nothing was registered fail with an error matching ErrNoMatch; no request
ever reaches the network while the engine is active.
*/
package mocker
