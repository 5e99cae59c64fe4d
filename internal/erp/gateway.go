// Package erp implements the ERP Gateway (spec.md §4.A): a reconnecting
// XML-RPC client against Odoo's common/object endpoints, with module
// capability discovery and graceful degradation when an optional module
// is not installed.
package erp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/worldline-go/klient"

	"github.com/boarsvc/boar/internal/boarerr"
	"github.com/boarsvc/boar/internal/metrics"
)

// availableModelProbe is the fixed list of optional Odoo models the Gateway
// checks for at first authentication, covering HR, recruitment, appraisal,
// attendance, leave, contract, calendar and project surfaces (spec.md §4.A).
var availableModelProbe = []string{
	"hr.employee",
	"hr.department",
	"hr.job",
	"hr.applicant",
	"hr.recruitment.stage",
	"hr.appraisal",
	"hr.appraisal.goal",
	"hr.attendance",
	"hr.leave",
	"hr.leave.type",
	"hr.contract",
	"calendar.event",
	"project.project",
	"project.task",
	"project.task.type",
	"ir.config_parameter",
}

// Config configures a Gateway.
type Config struct {
	BaseURL            string
	Database           string
	User               string
	Password           string
	Proxy              string
	InsecureSkipVerify bool
}

// Gateway is the singleton ERP client every BOAR service wraps. It is safe
// for concurrent use; authentication is serialized with mu so at most one
// goroutine re-authenticates at a time.
type Gateway struct {
	cfg Config

	mu             sync.Mutex
	uid            int64
	serverVersion  string
	common         *xmlrpc.Client
	object         *xmlrpc.Client
	availableModel map[string]bool
}

// New builds a Gateway. It does not connect; the first call triggers
// authentication (ensureConnected), matching the teacher's lazy-connect
// posture in internal/service/llm/openai's klient construction.
func New(cfg Config) (*Gateway, error) {
	if cfg.BaseURL == "" || cfg.Database == "" || cfg.User == "" || cfg.Password == "" {
		return nil, boarerr.New(boarerr.KindValidationError, "erp gateway requires base url, database, user and password")
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Gateway{cfg: cfg, availableModel: map[string]bool{}}, nil
}

// buildTransport constructs the *http.Transport the XML-RPC clients ride
// on, reusing klient for proxy/TLS configuration the same way the
// teacher's openai provider builds its transport.
func (g *Gateway) buildTransport() (*http.Transport, error) {
	opts := []klient.OptionClientFn{
		klient.WithLogger(slog.Default()),
		klient.WithDisableRetry(true),
		klient.WithDisableEnvValues(true),
	}
	if g.cfg.Proxy != "" {
		opts = append(opts, klient.WithProxy(g.cfg.Proxy))
	}
	if g.cfg.InsecureSkipVerify {
		opts = append(opts, klient.WithInsecureSkipVerify(true))
	}

	kc, err := klient.New(opts...)
	if err != nil {
		return nil, err
	}

	tr, ok := kc.HTTP.Transport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("klient transport is not *http.Transport")
	}
	return tr, nil
}

// Connect authenticates against Odoo and refreshes the available-module
// set. It is safe to call repeatedly; each call re-authenticates.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connectLocked(ctx)
}

func (g *Gateway) connectLocked(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	tr, err := g.buildTransport()
	if err != nil {
		return boarerr.Wrap(boarerr.KindErpUnreachable, "build transport", err)
	}

	common, err := xmlrpc.NewClient(g.cfg.BaseURL+"/xmlrpc/2/common", tr)
	if err != nil {
		return boarerr.Wrap(boarerr.KindErpUnreachable, "connect to common endpoint", err)
	}

	var version map[string]any
	if err := common.Call("version", nil, &version); err != nil {
		common.Close()
		return boarerr.Wrap(boarerr.KindErpUnreachable, fmt.Sprintf("reach %s", g.cfg.BaseURL), err)
	}

	var uid int64
	err = common.Call("authenticate", []any{g.cfg.Database, g.cfg.User, g.cfg.Password, map[string]any{}}, &uid)
	if err != nil {
		common.Close()
		return boarerr.Wrap(boarerr.KindErpAuthFailed, "authenticate", err)
	}
	if uid == 0 {
		common.Close()
		return boarerr.New(boarerr.KindErpAuthFailed, "authentication rejected (uid=0)")
	}

	object, err := xmlrpc.NewClient(g.cfg.BaseURL+"/xmlrpc/2/object", tr)
	if err != nil {
		common.Close()
		return boarerr.Wrap(boarerr.KindErpUnreachable, "connect to object endpoint", err)
	}

	if g.object != nil {
		g.object.Close()
	}
	if g.common != nil {
		g.common.Close()
	}

	g.common = common
	g.object = object
	g.uid = uid
	if sv, ok := version["server_version"].(string); ok {
		g.serverVersion = sv
	}

	slog.Info("erp gateway authenticated", "database", g.cfg.Database, "user", g.cfg.User, "uid", uid, "server_version", g.serverVersion)

	g.discoverModelsLocked(ctx)

	return nil
}

func (g *Gateway) ensureConnected(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.uid != 0 && g.object != nil {
		return nil
	}
	return g.connectLocked(ctx)
}

// discoverModelsLocked probes availableModelProbe against ir.model. Must be
// called with mu held. Individual probe failures are swallowed (the model
// is simply marked unavailable), matching the Python client's
// try/except-per-model posture.
func (g *Gateway) discoverModelsLocked(ctx context.Context) {
	g.availableModel = map[string]bool{}
	for _, model := range availableModelProbe {
		count, err := g.executeKWLocked(ctx, "ir.model", "search_count", []any{[]any{[]any{"model", "=", model}}}, nil)
		if err != nil {
			continue
		}
		if n, ok := toInt64(count); ok && n > 0 {
			g.availableModel[model] = true
		}
	}
	slog.Debug("erp module discovery complete", "available_models", g.availableModel)
}

// IsModelAvailable reports whether the named Odoo model was found in the
// last module discovery pass.
func (g *Gateway) IsModelAvailable(model string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.availableModel[model]
}

// RequireModel returns ErpModuleMissing if model is not installed. Higher
// layers must call this before using an optional model, per spec.md §4.A.
func (g *Gateway) RequireModel(model string) error {
	if !g.IsModelAvailable(model) {
		return boarerr.New(boarerr.KindErpModuleMissing, fmt.Sprintf("required model %q is not installed", model))
	}
	return nil
}

// GetServerVersion returns the Odoo server_version string reported at the
// last successful authentication, for health/diagnostics endpoints.
func (g *Gateway) GetServerVersion() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.serverVersion
}

// executeKWLocked calls execute_kw. Must be called with mu held.
func (g *Gateway) executeKWLocked(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if kwargs == nil {
		kwargs = map[string]any{}
	}

	var reply any
	err := g.object.Call("execute_kw", []any{
		g.cfg.Database, g.uid, g.cfg.Password, model, method, args, kwargs,
	}, &reply)
	return reply, err
}

// Execute is the generic entry point: execute(model, method, args, kwargs).
// On a transport-level failure it re-authenticates and retries exactly
// once before reporting ErpCallFailed, per spec.md §4.A's Authentication
// section, which scopes the retry-after-reconnect behavior to transport
// failures only ("callers may retry only ErpUnreachable"): a business/
// validation fault from Odoo (the execute_kw round-trip succeeded, Odoo
// rejected the call) is returned immediately instead, since the original
// call may have already landed server-side and retrying risks a
// duplicate create/write.
func (g *Gateway) Execute(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	start := time.Now()
	defer func() {
		metrics.ErpCallDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	}()

	if err := g.ensureConnected(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	reply, err := g.executeKWLocked(ctx, model, method, args, kwargs)
	g.mu.Unlock()
	if err == nil {
		return reply, nil
	}

	if !isTransportError(err) {
		return nil, boarerr.Wrap(boarerr.KindErpCallFailed, fmt.Sprintf("%s.%s", model, method), err)
	}

	slog.Warn("erp call failed with a transport error, retrying once after reconnect", "model", model, "method", method, "error", err)

	if connErr := g.Connect(ctx); connErr != nil {
		return nil, connErr
	}

	g.mu.Lock()
	reply, err = g.executeKWLocked(ctx, model, method, args, kwargs)
	g.mu.Unlock()
	if err != nil {
		return nil, boarerr.Wrap(boarerr.KindErpCallFailed, fmt.Sprintf("%s.%s", model, method), err)
	}
	return reply, nil
}

// isTransportError reports whether err represents a connection/network
// failure (closed socket, timeout, DNS failure, unexpected EOF) rather
// than a well-formed XML-RPC fault Odoo returned for a rejected call.
// kolo/xmlrpc surfaces the latter as a plain error built from the
// fault's faultString, with none of the stdlib network error types
// wrapped in it, so the absence of a matching net/url error is treated
// as "not transport" — the safe default per spec.md §4.A, since
// retrying an ambiguous failure risks a duplicate write.
func isTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded)
}

// Search returns matching record ids.
func (g *Gateway) Search(ctx context.Context, model string, domain []any, limit, offset int, order string) ([]int64, error) {
	kwargs := map[string]any{"offset": offset}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	if order != "" {
		kwargs["order"] = order
	}
	raw, err := g.Execute(ctx, model, "search", []any{domain}, kwargs)
	if err != nil {
		return nil, err
	}
	return toInt64Slice(raw), nil
}

// Read reads the given ids, optionally restricted to fields.
func (g *Gateway) Read(ctx context.Context, model string, ids []int64, fields []string) ([]map[string]any, error) {
	kwargs := map[string]any{}
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}
	raw, err := g.Execute(ctx, model, "read", []any{toAnySlice(ids)}, kwargs)
	if err != nil {
		return nil, err
	}
	return toRecords(raw), nil
}

// SearchRead combines search and read in one round-trip.
func (g *Gateway) SearchRead(ctx context.Context, model string, domain []any, fields []string, limit, offset int, order string) ([]map[string]any, error) {
	kwargs := map[string]any{"offset": offset}
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	if order != "" {
		kwargs["order"] = order
	}
	raw, err := g.Execute(ctx, model, "search_read", []any{domain}, kwargs)
	if err != nil {
		return nil, err
	}
	return toRecords(raw), nil
}

// SearchCount counts records matching domain.
func (g *Gateway) SearchCount(ctx context.Context, model string, domain []any) (int64, error) {
	raw, err := g.Execute(ctx, model, "search_count", []any{domain}, nil)
	if err != nil {
		return 0, err
	}
	n, _ := toInt64(raw)
	return n, nil
}

// Create inserts a new record and returns its id.
func (g *Gateway) Create(ctx context.Context, model string, values map[string]any) (int64, error) {
	raw, err := g.Execute(ctx, model, "create", []any{values}, nil)
	if err != nil {
		return 0, err
	}
	n, _ := toInt64(raw)
	return n, nil
}

// Write updates the given records.
func (g *Gateway) Write(ctx context.Context, model string, ids []int64, values map[string]any) error {
	_, err := g.Execute(ctx, model, "write", []any{toAnySlice(ids), values}, nil)
	return err
}

// Unlink deletes the given records.
func (g *Gateway) Unlink(ctx context.Context, model string, ids []int64) error {
	_, err := g.Execute(ctx, model, "unlink", []any{toAnySlice(ids)}, nil)
	return err
}

func toAnySlice(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func toInt64Slice(raw any) []int64 {
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(arr))
	for _, v := range arr {
		if n, ok := toInt64(v); ok {
			out = append(out, n)
		}
	}
	return out
}

func toRecords(raw any) []map[string]any {
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
