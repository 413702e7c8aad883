package interview

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	userAgent = "hireloop/interview-cli"

	// Request deadline covers headers arrival; slow interview turns stay
	// within it because the remote answers with the next question only.
	requestTimeout = 30 * time.Second
)

// Client talks to the remote AI interview API. The interview logic itself
// lives behind this contract; the client only moves questions and answers.
type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates a Client for the interview API at baseURL. token is optional
// and attached as a bearer credential when present.
func New(ctx context.Context, logger *zap.Logger, baseURL, token string) *Client {
	return &Client{
		ctx:    ctx,
		token:  token,
		APIURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}
