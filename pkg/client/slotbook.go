package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slotbook/pkg/model"
	"time"
)

const HoldTokenHeader = "X-Hold-Token"

// SlotbookClient talks to the public and admin API of a running booking
// service.
type SlotbookClient struct {
	httpClient *HttpClient
}

func NewSlotbookClient(baseURL string) *SlotbookClient {
	return &SlotbookClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *SlotbookClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	return c.httpClient.WaitForHealthy(ctx, maxWait)
}

func (c *SlotbookClient) CreateDoctor(ctx context.Context, req model.CreateDoctorRequest) (*model.Doctor, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/admin/doctors", req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create doctor: %s", resp.ToString())
	}

	var doctor model.Doctor
	if err := decodeData(resp, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (c *SlotbookClient) CreateSlot(ctx context.Context, doctorID string, startTime time.Time) (*model.Slot, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/admin/slots", model.CreateSlotRequest{
		DoctorID:  doctorID,
		StartTime: startTime.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create slot: %s", resp.ToString())
	}

	var slot model.Slot
	if err := decodeData(resp, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

func (c *SlotbookClient) ListSlots(ctx context.Context, doctorID string) ([]model.Slot, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/doctors/"+url.PathEscape(doctorID)+"/slots")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list slots: %s", resp.ToString())
	}

	var slots []model.Slot
	if err := decodeData(resp, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// Book fires a single claim. The raw response is returned so callers can
// tell a lost race (409) from any other failure.
func (c *SlotbookClient) Book(ctx context.Context, req model.ClaimRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/book", req)
}

func (c *SlotbookClient) Hold(ctx context.Context, slotID string) (*model.Reservation, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/slots/"+url.PathEscape(slotID)+"/hold", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("hold slot: %s", resp.ToString())
	}

	var reservation model.Reservation
	if err := decodeData(resp, &reservation); err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (c *SlotbookClient) Confirm(ctx context.Context, req model.ConfirmRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/book/confirm", req)
}

func (c *SlotbookClient) Release(ctx context.Context, slotID, holdToken string) (*Response, error) {
	return c.httpClient.DELETEWithHeaders(ctx, "/api/v1/slots/"+url.PathEscape(slotID)+"/hold", map[string]string{
		HoldTokenHeader: holdToken,
	})
}

// DecodeClaim reads the booking out of a successful claim response.
func DecodeClaim(resp *Response) (*model.Booking, error) {
	var body model.ClaimResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("could not decode claim response %s: %w", resp.ToString(), err)
	}
	if body.Booking == nil {
		return nil, fmt.Errorf("claim response has no booking: %s", resp.ToString())
	}
	return body.Booking, nil
}

func decodeData(resp *Response, target any) error {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return fmt.Errorf("could not decode response wrapper %s: %w", resp.ToString(), err)
	}
	if err := json.Unmarshal(wrapper.Data, target); err != nil {
		return fmt.Errorf("could not decode response data %s: %w", resp.ToString(), err)
	}
	return nil
}
