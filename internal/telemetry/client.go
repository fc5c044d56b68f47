// Package telemetry looks up circuit position traces from a SignalR style telemetry service. The
// lookup is best-effort: every failure is reported as an unavailable result so the dashboard can
// show a notice and carry on.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
)

// New returns a new telemetry service client.
func New(opts ...ClientOption) Client {
	// create a default instance of the client
	c := Client{
		logger:      slog.Default(),
		httpClient:  http.DefaultClient,
		httpBaseURL: "http://localhost:3000",
		wsBaseURL:   "ws://localhost:3000",
		timeout:     10 * time.Second,
	}
	// apply given options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type Client struct {
	httpClient  *http.Client
	httpBaseURL string
	wsBaseURL   string
	timeout     time.Duration
	logger      *slog.Logger
}

/* Client Optional Functional Parameters
------------------------------------------------------------------------------------------------- */

type ClientOption = func(c *Client)

// WithHTTPBaseURL configures the HTTP(S) URL of the telemetry service.
func WithHTTPBaseURL(baseUrl string) ClientOption {
	return func(c *Client) { c.httpBaseURL = baseUrl }
}

// WithWSBaseURL configures the websocket URL of the telemetry service.
func WithWSBaseURL(baseUrl string) ClientOption {
	return func(c *Client) { c.wsBaseURL = baseUrl }
}

// WithTimeout bounds the whole lookup, from negotiation to the last sample.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient configures the client used for the negotiation request.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger configures the logger to use within the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

/* Client API
------------------------------------------------------------------------------------------------- */

// Point is a single position sample on the circuit map.
type Point struct {
	X float64
	Y float64
}

// Trace is the position trace of the fastest lap of a Grand Prix.
type Trace struct {
	Season    int
	GrandPrix string
	Driver    string
	LapTime   float64
	Points    []Point
}

// Result is the outcome of a trace lookup: either a Trace, or the reason it is unavailable.
type Result struct {
	Trace  *Trace
	Reason string
}

// Available reports whether the lookup produced a trace.
func (r Result) Available() bool {
	return r.Trace != nil
}

func unavailable(reason string) Result {
	return Result{Reason: reason}
}

// FastestLapTrace requests the position trace of the fastest lap of a Grand Prix. It never fails:
// a refused connection, a service error, a timeout or an empty trace all yield an unavailable
// result carrying the reason.
func (c Client) FastestLapTrace(ctx context.Context, season int, grandPrix string) Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	trace, err := c.fetchTrace(ctx, season, grandPrix)
	if err != nil {
		c.logger.Warn("circuit telemetry unavailable", "season", season, "grand_prix", grandPrix, "err", err)
		return unavailable(err.Error())
	}
	if len(trace.Points) == 0 {
		c.logger.Warn("circuit telemetry returned no samples", "season", season, "grand_prix", grandPrix)
		return unavailable("no position samples for the fastest lap")
	}
	c.logger.Debug("received circuit trace", "season", season, "grand_prix", grandPrix, "samples", len(trace.Points))
	return Result{Trace: &trace}
}

/* Private Helper Functions
------------------------------------------------------------------------------------------------- */

func (c Client) fetchTrace(ctx context.Context, season int, grandPrix string) (Trace, error) {
	trace := Trace{Season: season, GrandPrix: grandPrix}

	token, cookie, err := c.negotiate(ctx)
	if err != nil {
		return trace, err
	}
	u, err := c.websocketURL(token)
	if err != nil {
		return trace, err
	}

	headers := make(http.Header)
	headers.Add("User-Agent", "BestHTTP")
	if cookie != "" {
		headers.Add("Cookie", cookie)
	}
	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return trace, fmt.Errorf("error dialing telemetry websocket: %w", err)
	}
	defer conn.CloseNow()
	// position traces arrive in large batches
	conn.SetReadLimit(-1)

	if err := c.sendFastestLapInvocation(ctx, conn, season, grandPrix); err != nil {
		return trace, err
	}

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return trace, fmt.Errorf("error reading telemetry message: %w", err)
		}
		done, err := c.processMessage(msg, &trace)
		if err != nil {
			return trace, err
		}
		if done {
			conn.Close(websocket.StatusNormalClosure, "client closed")
			return trace, nil
		}
	}
}

// negotiate calls the telemetry service, retrieving the connection token and cookie required to
// open the websocket connection.
func (c Client) negotiate(ctx context.Context) (string, string, error) {
	u, err := url.Parse(c.httpBaseURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid HTTPBaseURL: %w", err)
	}
	u = &url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   "/signalr/negotiate",
		RawQuery: url.Values{
			"connectionData": {`[{"Name":"` + hubName + `"}]`},
			"clientProtocol": {"1.5"},
		}.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return "", "", fmt.Errorf("error creating negotiation request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("error sending telemetry negotiation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("error negotiating telemetry connection: %w", errors.New(resp.Status))
	}
	token, err := parseConnectionToken(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("error parsing connection token: %w", err)
	}
	return token, resp.Header.Get("Set-Cookie"), nil
}

// parseConnectionToken pulls the connection token out of the negotiate response body.
func parseConnectionToken(body io.Reader) (string, error) {
	var n negotiateResponse
	if err := json.NewDecoder(body).Decode(&n); err != nil {
		return "", err
	}
	if n.ConnectionToken == "" {
		return "", errors.New("empty connection token")
	}
	return n.ConnectionToken, nil
}

// websocketURL generates the URL with the query parameters required to start the websocket
// connection.
func (c Client) websocketURL(token string) (*url.URL, error) {
	u, err := url.Parse(c.wsBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid WSBaseURL: %w", err)
	}
	return &url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   "/signalr/connect",
		RawQuery: url.Values{
			"connectionData":  {`[{"Name":"` + hubName + `"}]`},
			"connectionToken": {token},
			"clientProtocol":  {"1.5"},
			"transport":       {"webSockets"},
		}.Encode(),
	}, nil
}

// sendFastestLapInvocation asks the service for the fastest lap trace of a Grand Prix.
func (Client) sendFastestLapInvocation(ctx context.Context, conn *websocket.Conn, season int, grandPrix string) error {
	seasonArg, _ := json.Marshal(season)
	gpArg, _ := json.Marshal(grandPrix)
	msg, err := json.Marshal(invocation{
		Hub:          hubName,
		Method:       methodFastestLap,
		Arguments:    []json.RawMessage{seasonArg, gpArg},
		InvocationID: fastestLapInvocation,
	})
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return fmt.Errorf("error sending telemetry invocation: %w", err)
	}
	return nil
}

// processMessage appends position samples from change messages to the trace and reports whether
// the invocation has completed.
func (c Client) processMessage(msg []byte, trace *Trace) (bool, error) {
	var m hubMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		c.logger.Debug("unhandled message", "msg", string(msg))
		return false, nil
	}

	for _, inv := range m.Messages {
		if inv.Hub != hubName || inv.Method != methodPosition || len(inv.Arguments) == 0 {
			continue
		}
		var samples []positionSample
		if err := json.Unmarshal(inv.Arguments[0], &samples); err != nil {
			c.logger.Warn("position msg in unknown format", "msg", string(inv.Arguments[0]))
			continue
		}
		for _, s := range samples {
			if s.X == nil || s.Y == nil {
				continue
			}
			trace.Points = append(trace.Points, Point{X: *s.X, Y: *s.Y})
		}
	}

	if m.InvocationID != fastestLapInvocation {
		return false, nil
	}
	if m.Error != "" {
		return true, fmt.Errorf("telemetry service error: %s", m.Error)
	}
	var summary lapSummary
	if len(m.Result) > 0 {
		if err := json.Unmarshal(m.Result, &summary); err != nil {
			c.logger.Warn("lap summary in unknown format", "msg", string(m.Result))
		}
	}
	if summary.Driver != nil {
		trace.Driver = *summary.Driver
	}
	if summary.LapTime != nil {
		trace.LapTime = *summary.LapTime
	}
	return true, nil
}
