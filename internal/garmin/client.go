package garmin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Default endpoints for the external service.
const (
	DefaultSSOURL = "https://sso.garmin.com"
	DefaultAPIURL = "https://connect.garmin.com"

	defaultTimeout = 30 * time.Second

	// The service rejects requests without a browser-looking user agent.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Client is the capability surface of the external service. Authenticate
// performs the cookie/ticket login handshake; the fetch operations require a
// previously established session and return ErrSessionExpired when the service
// no longer accepts it. FetchActivityDetail and the per-day sub-fetches
// (sleep, body battery, stress, HRV) are best-effort: any failure other than
// an expired session degrades to a nil payload with a nil error.
type Client interface {
	Authenticate(ctx context.Context, username, password string) (*Session, error)
	FetchActivities(ctx context.Context, sess *Session, limit int) ([]ActivitySummary, error)
	FetchActivityDetail(ctx context.Context, sess *Session, activityID int64) (*ActivityDetail, error)
	FetchDailySummary(ctx context.Context, sess *Session, day time.Time) (*DailySummary, error)
	FetchSleep(ctx context.Context, sess *Session, day time.Time) (*SleepData, error)
	FetchBodyBattery(ctx context.Context, sess *Session, day time.Time) (*BodyBatteryData, error)
	FetchStress(ctx context.Context, sess *Session, day time.Time) (*StressData, error)
	FetchHRV(ctx context.Context, sess *Session, day time.Time) (*HRVData, error)
}

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to the real external service. The login handshake is
// undocumented and version-coupled; everything above this type treats it as an
// opaque capability.
type HTTPClient struct {
	ssoURL     string
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a client against the given SSO and API base URLs.
// Pass DefaultSSOURL/DefaultAPIURL outside of tests.
func NewHTTPClient(ssoURL, apiURL string, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		ssoURL: ssoURL,
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

var (
	csrfPattern   = regexp.MustCompile(`name="_csrf"\s+value="([^"]+)"`)
	ticketPattern = regexp.MustCompile(`ticket=(ST-[\w.-]+)`)
)

// errAbsent marks a fetch that came back empty (404 or no payload). It never
// escapes the package; best-effort callers see (nil, nil) instead.
var errAbsent = errors.New("payload absent")

// Authenticate performs the multi-step login handshake: fetch the sign-in page
// to obtain the anti-forgery token and initial cookies, submit credentials,
// extract the one-time service ticket from the response body, then validate
// the ticket against the API host to receive session cookies.
func (c *HTTPClient) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	hc := &http.Client{
		Timeout: c.httpClient.Timeout,
		Jar:     jar,
	}

	signinURL := c.ssoURL + "/sso/signin"
	params := url.Values{
		"service":                    {c.apiURL + "/modern"},
		"gauthHost":                  {c.ssoURL + "/sso"},
		"consumeServiceTicket":       {"false"},
		"generateExtraServiceTicket": {"true"},
		"embedWidget":                {"true"},
	}

	page, err := c.authGet(ctx, hc, signinURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"username": {username},
		"password": {password},
		"embed":    {"true"},
	}
	if m := csrfPattern.FindSubmatch(page); m != nil {
		form.Set("_csrf", string(m[1]))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signinURL+"?"+params.Encode(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TransportError{Op: "login", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", signinURL)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "login", Err: err}
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &TransportError{Op: "login", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "login", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	m := ticketPattern.FindSubmatch(body)
	if m == nil {
		return nil, ErrNoTicket
	}
	ticket := string(m[1])

	// Validating the ticket redirects a few times and leaves the session
	// cookies in the jar.
	if _, err := c.authGet(ctx, hc, c.apiURL+"/modern?ticket="+url.QueryEscape(ticket)); err != nil {
		return nil, err
	}

	apiURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}

	var cookies []Cookie
	hasSession := false
	for _, ck := range jar.Cookies(apiURL) {
		if ck.Name == "SESSIONID" || ck.Name == "SESSION" {
			hasSession = true
		}
		cookies = append(cookies, Cookie{Name: ck.Name, Value: ck.Value, Path: ck.Path})
	}
	if !hasSession {
		return nil, ErrNoSessionCookie
	}

	c.logger.Info("authenticated against external service", "cookies", len(cookies))

	return &Session{
		Cookies:   cookies,
		CreatedAt: time.Now(),
	}, nil
}

func (c *HTTPClient) authGet(ctx context.Context, hc *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{Op: "login", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "login", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "login", Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &TransportError{Op: "login", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return body, nil
}

// FetchActivities returns up to limit most recent activities. This is a
// mandatory fetch: failures surface as real errors.
func (c *HTTPClient) FetchActivities(ctx context.Context, sess *Session, limit int) ([]ActivitySummary, error) {
	query := url.Values{
		"start": {"0"},
		"limit": {strconv.Itoa(limit)},
	}
	body, err := c.get(ctx, sess, "activities", "/activitylist-service/activities/search/activities", query)
	if err != nil {
		if errors.Is(err, errAbsent) {
			return nil, &TransportError{Op: "activities", Err: fmt.Errorf("endpoint not found")}
		}
		return nil, err
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(body, &rawItems); err != nil {
		return nil, &TransportError{Op: "activities", Err: fmt.Errorf("decode response: %w", err)}
	}

	activities := make([]ActivitySummary, 0, len(rawItems))
	for _, raw := range rawItems {
		var a ActivitySummary
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, &TransportError{Op: "activities", Err: fmt.Errorf("decode activity: %w", err)}
		}
		a.Raw = raw
		activities = append(activities, a)
	}
	return activities, nil
}

// FetchActivityDetail returns extended metrics for one activity, or nil if the
// service cannot provide them. Only an expired session surfaces as an error.
func (c *HTTPClient) FetchActivityDetail(ctx context.Context, sess *Session, activityID int64) (*ActivityDetail, error) {
	body, err := c.get(ctx, sess, "activity detail", fmt.Sprintf("/activity-service/activity/%d", activityID), nil)
	if err != nil {
		return nil, c.bestEffort("activity detail", err)
	}

	var detail ActivityDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		c.logger.Debug("undecodable activity detail", "activity_id", activityID, "error", err)
		return nil, nil
	}
	detail.Raw = body
	return &detail, nil
}

// FetchDailySummary returns the daily summary for the given day, or nil when
// the service has no data for it. This is a mandatory fetch for days that do
// have data: transport failures surface as real errors.
func (c *HTTPClient) FetchDailySummary(ctx context.Context, sess *Session, day time.Time) (*DailySummary, error) {
	query := url.Values{"calendarDate": {formatDay(day)}}
	body, err := c.get(ctx, sess, "daily summary", "/usersummary-service/usersummary/daily", query)
	if err != nil {
		if errors.Is(err, errAbsent) {
			return nil, nil
		}
		return nil, err
	}

	var summary DailySummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, &TransportError{Op: "daily summary", Err: fmt.Errorf("decode response: %w", err)}
	}
	if summary.CalendarDate == "" {
		// Privacy-protected or empty payload; the service answers 200 anyway.
		return nil, nil
	}
	summary.Raw = body
	return &summary, nil
}

// FetchSleep returns sleep data for the given day, best-effort.
func (c *HTTPClient) FetchSleep(ctx context.Context, sess *Session, day time.Time) (*SleepData, error) {
	query := url.Values{"date": {formatDay(day)}}
	body, err := c.get(ctx, sess, "sleep", "/wellness-service/wellness/dailySleepData", query)
	if err != nil {
		return nil, c.bestEffort("sleep", err)
	}

	var envelope struct {
		DailySleepDTO *SleepData `json:"dailySleepDTO"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.DailySleepDTO == nil {
		return nil, nil
	}
	sleep := envelope.DailySleepDTO
	if sleep.SleepTimeSeconds == nil {
		return nil, nil
	}
	sleep.Raw = body
	return sleep, nil
}

// FetchBodyBattery returns body battery data for the given day, best-effort.
func (c *HTTPClient) FetchBodyBattery(ctx context.Context, sess *Session, day time.Time) (*BodyBatteryData, error) {
	query := url.Values{
		"startDate": {formatDay(day)},
		"endDate":   {formatDay(day)},
	}
	body, err := c.get(ctx, sess, "body battery", "/wellness-service/wellness/bodyBattery/reports/daily", query)
	if err != nil {
		return nil, c.bestEffort("body battery", err)
	}

	var reports []BodyBatteryData
	if err := json.Unmarshal(body, &reports); err != nil || len(reports) == 0 {
		return nil, nil
	}
	report := reports[0]
	report.Raw = body
	return &report, nil
}

// FetchStress returns stress data for the given day, best-effort.
func (c *HTTPClient) FetchStress(ctx context.Context, sess *Session, day time.Time) (*StressData, error) {
	body, err := c.get(ctx, sess, "stress", "/wellness-service/wellness/dailyStress/"+formatDay(day), nil)
	if err != nil {
		return nil, c.bestEffort("stress", err)
	}

	var stress StressData
	if err := json.Unmarshal(body, &stress); err != nil {
		return nil, nil
	}
	if stress.AvgStressLevel == nil || *stress.AvgStressLevel < 0 {
		// The service reports -1 when the device recorded no stress samples.
		return nil, nil
	}
	stress.Raw = body
	return &stress, nil
}

// FetchHRV returns HRV data for the given day, best-effort.
func (c *HTTPClient) FetchHRV(ctx context.Context, sess *Session, day time.Time) (*HRVData, error) {
	body, err := c.get(ctx, sess, "hrv", "/hrv-service/hrv/"+formatDay(day), nil)
	if err != nil {
		return nil, c.bestEffort("hrv", err)
	}

	var envelope struct {
		HRVSummary *HRVData `json:"hrvSummary"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.HRVSummary == nil {
		return nil, nil
	}
	hrv := envelope.HRVSummary
	if hrv.Status == "" {
		return nil, nil
	}
	hrv.Raw = body
	return hrv, nil
}

// get issues an authenticated GET and returns the response body. 401/403 map
// to ErrSessionExpired, 404 to errAbsent, anything else non-200 to a
// TransportError.
func (c *HTTPClient) get(ctx context.Context, sess *Session, op, path string, query url.Values) ([]byte, error) {
	rawURL := c.apiURL + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	for _, ck := range sess.httpCookies() {
		req.AddCookie(ck)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrSessionExpired
	case resp.StatusCode == http.StatusNotFound:
		return nil, errAbsent
	case resp.StatusCode != http.StatusOK:
		return nil, &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return body, nil
}

// bestEffort degrades every failure except an expired session to absence.
func (c *HTTPClient) bestEffort(op string, err error) error {
	if errors.Is(err, ErrSessionExpired) {
		return ErrSessionExpired
	}
	if !errors.Is(err, errAbsent) {
		c.logger.Debug("best-effort fetch failed", "op", op, "error", err)
	}
	return nil
}

func formatDay(day time.Time) string {
	return day.Format("2006-01-02")
}
