package accident

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	RegisterDriver(name, email, sign, insuranceNumber string, start, expire time.Time) error
	VehicleOf(name string) (int64, error)
	EmailOf(name string) (string, error)
	Do(method, path, as string, body any) error
	Upload(path, as, contentType string, data []byte) error
	StatusCode() int
	ResponseBody() string
	ResponseField(field string) (any, error)
}

// RegisterSteps registers accident statement step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &accidentSteps{
		tc:       tc,
		vehicles: make(map[string]registration),
		invites:  make(map[string]int64),
	}

	// Ledger setup
	ctx.Step(`^driver "([^"]*)" with email "([^"]*)" owns vehicle "([^"]*)" insured under "([^"]*)" from "([^"]*)" to "([^"]*)"$`, steps.driverOwnsVehicle)

	// Accident steps
	ctx.Step(`^"([^"]*)" reports an accident on "([^"]*)" in "([^"]*)"$`, steps.reportAccident)
	ctx.Step(`^"([^"]*)" invites "([^"]*)"$`, steps.inviteDriver)
	ctx.Step(`^"([^"]*)" removes the invite for "([^"]*)"$`, steps.removeInvite)
	ctx.Step(`^"([^"]*)" views the accident$`, steps.viewAccident)

	// Statement steps
	ctx.Step(`^"([^"]*)" adds a statement$`, steps.addStatement)
	ctx.Step(`^"([^"]*)" declares cause "([^"]*)" with comments "([^"]*)"$`, steps.declare)
	ctx.Step(`^"([^"]*)" draws a sketch$`, steps.drawSketch)
	ctx.Step(`^"([^"]*)" uploads an image$`, steps.uploadImage)
	ctx.Step(`^"([^"]*)" completes the statement$`, steps.complete)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the request should fail with status (\d+) and error "([^"]*)"$`, steps.shouldFailWith)
	ctx.Step(`^the failure reason should be "([^"]*)"$`, steps.reasonShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.fieldShouldBeBool)
	ctx.Step(`^the accident should list (\d+) statements? and (\d+) invites?$`, steps.accidentShouldList)
}

type registration struct {
	sign            string
	insuranceNumber string
}

type accidentSteps struct {
	tc         TestContext
	vehicles   map[string]registration
	invites    map[string]int64
	accidentID int64
}

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func (s *accidentSteps) driverOwnsVehicle(ctx context.Context, name, email, sign, number, from, to string) error {
	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	expire, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return fmt.Errorf("expire date: %w", err)
	}
	s.vehicles[name] = registration{sign: sign, insuranceNumber: number}
	return s.tc.RegisterDriver(name, email, sign, number, start, expire)
}

func (s *accidentSteps) reportAccident(ctx context.Context, name, date, city string) error {
	vehicleID, err := s.tc.VehicleOf(name)
	if err != nil {
		return err
	}
	body := map[string]any{
		"date":    date,
		"city":    city,
		"address": "Main street 1",
	}
	if err := s.tc.Do(http.MethodPost, fmt.Sprintf("/vehicles/%d", vehicleID), name, body); err != nil {
		return err
	}
	if s.tc.StatusCode() != http.StatusCreated {
		return nil
	}
	id, err := s.numericField("id")
	if err != nil {
		return err
	}
	s.accidentID = id
	return nil
}

func (s *accidentSteps) inviteDriver(ctx context.Context, name, invitee string) error {
	email, err := s.tc.EmailOf(invitee)
	if err != nil {
		return err
	}
	reg, ok := s.vehicles[invitee]
	if !ok {
		return fmt.Errorf("driver %q has no vehicle", invitee)
	}
	body := map[string]any{
		"driver_full_name": invitee + " Driver",
		"driver_email":     email,
		"vehicle_sign":     reg.sign,
		"insurance_number": reg.insuranceNumber,
		"insurance_email":  "claims@" + reg.insuranceNumber + ".example",
	}
	if err := s.tc.Do(http.MethodPost, s.accidentPath("/temporary"), name, body); err != nil {
		return err
	}
	if s.tc.StatusCode() != http.StatusCreated {
		return nil
	}
	id, err := s.numericField("id")
	if err != nil {
		return err
	}
	s.invites[invitee] = id
	return nil
}

func (s *accidentSteps) removeInvite(ctx context.Context, name, invitee string) error {
	id, ok := s.invites[invitee]
	if !ok {
		return fmt.Errorf("no invite recorded for %q", invitee)
	}
	return s.tc.Do(http.MethodPost, s.accidentPath(fmt.Sprintf("/remove-temporary/%d", id)), name, nil)
}

func (s *accidentSteps) viewAccident(ctx context.Context, name string) error {
	return s.tc.Do(http.MethodGet, s.accidentPath(""), name, nil)
}

func (s *accidentSteps) addStatement(ctx context.Context, name string) error {
	return s.tc.Do(http.MethodPost, s.accidentPath("/statement"), name, nil)
}

func (s *accidentSteps) declare(ctx context.Context, name, cause, comments string) error {
	body := map[string]any{
		"caused_by": cause,
		"comments":  comments,
	}
	return s.tc.Do(http.MethodPut, s.accidentPath("/statement"), name, body)
}

func (s *accidentSteps) drawSketch(ctx context.Context, name string) error {
	body := map[string]any{
		"points": []map[string]int{
			{"offsetX": 10, "offsetY": 20},
			{"offsetX": 30, "offsetY": 40},
		},
	}
	return s.tc.Do(http.MethodPost, s.accidentPath("/statement/sketch"), name, body)
}

func (s *accidentSteps) uploadImage(ctx context.Context, name string) error {
	return s.tc.Upload(s.accidentPath("/statement/image"), name, "image/png", pngHeader)
}

func (s *accidentSteps) complete(ctx context.Context, name string) error {
	return s.tc.Do(http.MethodPut, s.accidentPath("/statement/complete"), name, nil)
}

func (s *accidentSteps) statusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.StatusCode(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.ResponseBody())
	}
	return nil
}

func (s *accidentSteps) shouldFailWith(ctx context.Context, status int, code string) error {
	if err := s.statusShouldBe(ctx, status); err != nil {
		return err
	}
	got, err := s.tc.ResponseField("error")
	if err != nil {
		return err
	}
	if got != code {
		return fmt.Errorf("expected error %q, got %v", code, got)
	}
	return nil
}

func (s *accidentSteps) reasonShouldBe(ctx context.Context, reason string) error {
	got, err := s.tc.ResponseField("reason")
	if err != nil {
		return err
	}
	if got != reason {
		return fmt.Errorf("expected reason %q, got %v", reason, got)
	}
	return nil
}

func (s *accidentSteps) fieldShouldBeBool(ctx context.Context, field, value string) error {
	got, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	b, ok := got.(bool)
	if !ok {
		return fmt.Errorf("field %q is %T, not a boolean", field, got)
	}
	if fmt.Sprint(b) != value {
		return fmt.Errorf("expected %q to be %s, got %t", field, value, b)
	}
	return nil
}

func (s *accidentSteps) accidentShouldList(ctx context.Context, statements, invites int) error {
	if err := s.statusShouldBe(ctx, http.StatusOK); err != nil {
		return err
	}
	if err := s.listLength("statements", statements); err != nil {
		return err
	}
	return s.listLength("temporary_drivers", invites)
}

func (s *accidentSteps) listLength(field string, expected int) error {
	got, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	list, ok := got.([]any)
	if !ok {
		return fmt.Errorf("field %q is %T, not a list", field, got)
	}
	if len(list) != expected {
		return fmt.Errorf("expected %d %s, got %d", expected, field, len(list))
	}
	return nil
}

func (s *accidentSteps) numericField(field string) (int64, error) {
	got, err := s.tc.ResponseField(field)
	if err != nil {
		return 0, err
	}
	n, ok := got.(float64)
	if !ok {
		return 0, fmt.Errorf("field %q is %T, not a number", field, got)
	}
	return int64(n), nil
}

func (s *accidentSteps) accidentPath(suffix string) string {
	return fmt.Sprintf("/accidents/%d%s", s.accidentID, suffix)
}
