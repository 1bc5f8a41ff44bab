package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"

	accidenthandler "amicable/internal/accident/handler"
	accidentservice "amicable/internal/accident/service"
	accidentstore "amicable/internal/accident/store"
	"amicable/internal/identity"
	ledger "amicable/internal/ledger/models"
	ledgerstore "amicable/internal/ledger/store"
	"amicable/internal/platform/blob"
	"amicable/pkg/domain"
	auditmemory "amicable/pkg/platform/audit/store/memory"
)

const (
	signingKey = "e2e-signing-key"
	issuer     = "amicable-e2e"
	tokenTTL   = time.Hour
	txTimeout  = 5 * time.Second
)

type driver struct {
	principal domain.Principal
	vehicle   domain.VehicleID
	token     string
}

// TestContext serves the real handler and service over httptest with
// in-memory stores and a seeded vehicle ledger. One is built per scenario.
type TestContext struct {
	server   *httptest.Server
	client   *http.Client
	ledger   *ledgerstore.InMemory
	resolver *identity.JWTResolver
	drivers  map[string]*driver
	nextUser int64

	status int
	body   []byte
}

func NewTestContext() *TestContext {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accidents := accidentstore.NewInMemory()
	vehicles := ledgerstore.NewInMemory()
	svc := accidentservice.New(accidents, vehicles, accidentservice.NewShardedTx(accidents, txTimeout),
		accidentservice.WithLogger(logger),
		accidentservice.WithOutbox(auditmemory.NewInMemoryStore()),
		accidentservice.WithBlobStore(blob.NewInMemory()),
	)
	resolver := identity.NewJWTResolver(signingKey, issuer)

	r := chi.NewRouter()
	accidenthandler.New(svc, logger, nil, resolver).Register(r)
	server := httptest.NewServer(r)

	return &TestContext{
		server:   server,
		client:   server.Client(),
		ledger:   vehicles,
		resolver: resolver,
		drivers:  make(map[string]*driver),
	}
}

func (tc *TestContext) Close() {
	tc.server.Close()
}

// RegisterDriver seeds the ledger with a vehicle owned by a new user and
// insured over [start, expire], and issues that user a token.
func (tc *TestContext) RegisterDriver(name, email, sign, insuranceNumber string, start, expire time.Time) error {
	if _, ok := tc.drivers[name]; ok {
		return fmt.Errorf("driver %q is already registered", name)
	}
	tc.nextUser++
	p := domain.Principal{
		UserID:   domain.UserID(tc.nextUser),
		Email:    email,
		IsActive: true,
	}

	vehicleID := tc.ledger.AddVehicle(ledger.Vehicle{Type: "car", Model: "Golf", Sign: sign})
	tc.ledger.AddRole(vehicleID, p.UserID, ledger.RoleOwner)
	tc.ledger.AddInsurance(ledger.Insurance{
		VehicleID:  vehicleID,
		Number:     insuranceNumber,
		StartDate:  start,
		ExpireDate: expire,
		CompanyID:  tc.ledger.AddCompany("claims@" + insuranceNumber + ".example"),
	})

	token, err := tc.resolver.IssueToken(p, tokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	tc.drivers[name] = &driver{principal: p, vehicle: vehicleID, token: token}
	return nil
}

func (tc *TestContext) VehicleOf(name string) (int64, error) {
	d, ok := tc.drivers[name]
	if !ok {
		return 0, fmt.Errorf("unknown driver %q", name)
	}
	return int64(d.vehicle), nil
}

func (tc *TestContext) EmailOf(name string) (string, error) {
	d, ok := tc.drivers[name]
	if !ok {
		return "", fmt.Errorf("unknown driver %q", name)
	}
	return d.principal.Email, nil
}

// Do sends a JSON request as the named driver. A nil body sends none.
func (tc *TestContext) Do(method, path, as string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.server.URL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return tc.send(req, as)
}

// Upload posts data as the multipart "image" field.
func (tc *TestContext) Upload(path, as, contentType string, data []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="image"; filename="photo"`},
		"Content-Type":        {contentType},
	})
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, tc.server.URL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return tc.send(req, as)
}

func (tc *TestContext) send(req *http.Request, as string) error {
	if as != "" {
		d, ok := tc.drivers[as]
		if !ok {
			return fmt.Errorf("unknown driver %q", as)
		}
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	tc.status = resp.StatusCode
	tc.body = body
	return nil
}

func (tc *TestContext) StatusCode() int {
	return tc.status
}

func (tc *TestContext) ResponseBody() string {
	return string(tc.body)
}

// ResponseField returns a top-level field of the last JSON object response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.body, &data); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response: %s", field, tc.body)
	}
	return value, nil
}
