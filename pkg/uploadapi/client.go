// Package uploadapi implements the Data Theorem Upload API client: the
// two-phase handshake that exchanges a long-lived API key for a one-time
// upload URL and then streams the build to it.
package uploadapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/datatheorem/dtupload/pkg/secret"
	"github.com/datatheorem/dtupload/pkg/transport"
)

const (
	// DefaultBaseURL is the production Upload API.
	DefaultBaseURL = "https://api.securetheorem.com"

	// initPath is the session-negotiation endpoint under the base URL.
	initPath = "/uploadapi/v1/upload_init"

	// fileField is the multipart field name the upload endpoint expects.
	fileField = "file"
)

// Client talks to the Upload API. One Client serves one CI invocation;
// it holds no state beyond its configuration.
type Client struct {
	log        logrus.FieldLogger
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the Upload API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// New creates a Client. The version string is embedded in the User-Agent
// header so the service can identify the uploading tool.
func New(log logrus.FieldLogger, httpClient *http.Client, version string, opts ...Option) *Client {
	c := &Client{
		log:        log.WithField("component", "uploadapi"),
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		userAgent:  "dtupload " + version,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Init calls upload_init with the API key and negotiates an upload
// session. A nil Session is returned whenever the Result is a failure.
// Each call issues an independent init request; the server may hand out a
// different URL every time.
func (c *Client) Init(ctx context.Context, key secret.Secret) (*Session, Result) {
	c.log.Info("Retrieving the upload URL from Data Theorem")

	header := http.Header{
		"Authorization": {key.Plaintext()},
		"User-Agent":    {c.userAgent},
	}

	status, body, err := transport.Post(ctx, c.httpClient, c.baseURL+initPath, header, nil)
	if err != nil {
		return nil, classifyTransportError("upload_init", err)
	}

	c.log.WithField("status", status).Debug("upload_init response received")

	switch {
	case status == http.StatusUnauthorized:
		return nil, Failed(
			KindCredentialError,
			"Data Theorem upload_init call forbidden access: "+string(body),
		)
	case status == http.StatusOK:
		session, err := parseSession(body)
		if err != nil {
			return nil, Failed(
				KindProtocolError,
				"Data Theorem upload_init wrong payload: "+string(body),
			)
		}

		return session, Succeeded(
			"Successfully retrieved the upload URL from Data Theorem: " + string(body),
		)
	default:
		return nil, Failed(
			KindServerError,
			"Data Theorem upload_init call error: "+string(body),
		)
	}
}

// Upload streams the build at buildPath to the session's upload URL as a
// multipart body with a single binary "file" part. The URL itself is the
// capability, so no Authorization header is sent. The session must not be
// reused after this call.
func (c *Client) Upload(ctx context.Context, session *Session, buildPath string) Result {
	c.log.WithField("path", buildPath).Info("Uploading build to Data Theorem")

	f, err := os.Open(buildPath)
	if err != nil {
		return Failed(KindIOError, fmt.Sprintf("reading build %s: %v", buildPath, err))
	}

	defer func() { _ = f.Close() }()

	// Stream the multipart body through a pipe so the build is never
	// buffered whole in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(fileField, filepath.Base(buildPath))
		if err != nil {
			_ = pw.CloseWithError(err)

			return
		}

		if _, err := io.Copy(part, f); err != nil {
			_ = pw.CloseWithError(err)

			return
		}

		_ = pw.CloseWithError(mw.Close())
	}()

	header := http.Header{
		"User-Agent":   {c.userAgent},
		"Content-Type": {mw.FormDataContentType()},
	}

	status, body, err := transport.Post(ctx, c.httpClient, session.UploadURL, header, pr)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return Failed(KindIOError, fmt.Sprintf("reading build %s: %v", buildPath, err))
		}

		return classifyTransportError("upload build", err)
	}

	if status == http.StatusOK {
		return Succeeded("Successfully uploaded build to Data Theorem: " + string(body))
	}

	return Failed(
		KindServerError,
		"Data Theorem upload build returned an error: "+string(body),
	)
}

// SendBuild performs the full handshake: negotiate a session, then upload.
// When negotiation fails its Result is propagated unchanged and the upload
// endpoint is never contacted.
func (c *Client) SendBuild(ctx context.Context, key secret.Secret, buildPath string) Result {
	session, res := c.Init(ctx, key)
	if !res.Success {
		return res
	}

	c.log.Info(res.Message)

	return c.Upload(ctx, session, buildPath)
}

// classifyTransportError maps connection-level failures to a Result. DNS
// failures get the contact-support framing: they usually mean the CI host
// cannot reach the service at all, which is an environment problem.
func classifyTransportError(operation string, err error) Result {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Failed(
			KindTransportError,
			fmt.Sprintf(
				"Data Theorem %s call error: unknown host %s\nPlease contact Data Theorem support: %v",
				operation, dnsErr.Name, err,
			),
		)
	}

	return Failed(
		KindTransportError,
		fmt.Sprintf("Data Theorem %s call error: %v", operation, err),
	)
}
