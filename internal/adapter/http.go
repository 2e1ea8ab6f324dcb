package adapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/MKhiriev/go-health-sync/internal/config"
	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/utils"
	"github.com/MKhiriev/go-health-sync/models"
)

const (
	headerDeviceID  = "X-Device-ID"
	headerAccountID = "X-Account-ID"
)

type httpRemoteStore struct {
	// client carries the request timeout; stream is used for change feeds
	// and subscriptions, which are bounded by their context only.
	client *resty.Client
	stream *resty.Client

	token     string
	deviceID  string
	accountID string
	log       *logger.Logger
}

// NewHTTPRemoteStore returns a RemoteStore talking to the REST API at
// cfg.Address. The account id is taken from the subject of the bearer token.
func NewHTTPRemoteStore(cfg config.Remote, deviceID string, log *logger.Logger) (RemoteStore, error) {
	baseURL := strings.TrimRight(cfg.Address, "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid remote address %q: %w", cfg.Address, err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var accountID string
	if token := strings.TrimSpace(cfg.AuthToken); token != "" {
		id, err := parseAccountIDFromJWT(token)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		accountID = id
	}

	log.Info().
		Str("func", "NewHTTPRemoteStore").
		Str("address", baseURL).
		Str("account_id", accountID).
		Msg("remote store configured")

	return &httpRemoteStore{
		client:    utils.NewHTTPClient().SetBaseURL(baseURL).SetTimeout(timeout),
		stream:    utils.NewHTTPClient().SetBaseURL(baseURL),
		token:     strings.TrimSpace(cfg.AuthToken),
		deviceID:  deviceID,
		accountID: accountID,
		log:       log,
	}, nil
}

type saveRequest struct {
	Records []models.RemoteRecord `json:"records"`
}

type deleteRequest struct {
	Tombstones []models.Tombstone `json:"tombstones"`
}

type fetchRequest struct {
	RecordType models.RecordType `json:"record_type"`
	models.FetchPredicate
}

type resultsResponse struct {
	Results []wireResult `json:"results"`
}

type wireResult struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

type fetchResponse struct {
	Records []models.RemoteRecord `json:"records"`
}

// changeFrame is one NDJSON line of a change stream.
type changeFrame struct {
	Type      string               `json:"type"`
	Record    *models.RemoteRecord `json:"record,omitempty"`
	Tombstone *models.Tombstone    `json:"tombstone,omitempty"`
	Cursor    []byte               `json:"cursor,omitempty"`
	Error     string               `json:"error,omitempty"`
}

const (
	frameChanged  = "changed"
	frameDeleted  = "deleted"
	frameComplete = "complete"
	frameError    = "error"
)

func (h *httpRemoteStore) Save(ctx context.Context, records []models.RemoteRecord) ([]models.RecordResult, error) {
	resp, err := h.authedRequest(ctx, h.client).
		SetHeader("Content-Type", "application/json").
		SetBody(saveRequest{Records: records}).
		Post("/api/records/save")
	if err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var rr resultsResponse
	if err = json.Unmarshal(resp.Body(), &rr); err != nil {
		return nil, fmt.Errorf("decode save response: %w", err)
	}
	return toRecordResults(rr.Results), nil
}

func (h *httpRemoteStore) Fetch(ctx context.Context, recordType models.RecordType, pred models.FetchPredicate) ([]models.RemoteRecord, error) {
	resp, err := h.authedRequest(ctx, h.client).
		SetHeader("Content-Type", "application/json").
		SetBody(fetchRequest{RecordType: recordType, FetchPredicate: pred}).
		Post("/api/records/fetch")
	if err != nil {
		return nil, fmt.Errorf("fetch request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var fr fetchResponse
	if err = json.Unmarshal(resp.Body(), &fr); err != nil {
		return nil, fmt.Errorf("decode fetch response: %w", err)
	}
	return fr.Records, nil
}

func (h *httpRemoteStore) Delete(ctx context.Context, tombstones []models.Tombstone) ([]models.RecordResult, error) {
	resp, err := h.authedRequest(ctx, h.client).
		SetHeader("Content-Type", "application/json").
		SetBody(deleteRequest{Tombstones: tombstones}).
		Post("/api/records/delete")
	if err != nil {
		return nil, fmt.Errorf("delete request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var rr resultsResponse
	if err = json.Unmarshal(resp.Body(), &rr); err != nil {
		return nil, fmt.Errorf("decode delete response: %w", err)
	}
	return toRecordResults(rr.Results), nil
}

// FetchChanges reads the zone's change stream as newline-delimited JSON
// frames. Only a "complete" frame yields a cursor.
func (h *httpRemoteStore) FetchChanges(ctx context.Context, zone string, cursor *models.Cursor, handler ChangeHandler) (models.Cursor, error) {
	req := h.authedRequest(ctx, h.stream).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "application/x-ndjson").
		SetPathParam("zone", zone)
	if cursor != nil && len(cursor.Token) > 0 {
		req.SetQueryParam("cursor", base64.RawURLEncoding.EncodeToString(cursor.Token))
	}

	resp, err := req.Get("/api/zones/{zone}/changes")
	if err != nil {
		return models.Cursor{}, fmt.Errorf("fetch changes request: %w", err)
	}
	raw := resp.RawBody()
	if raw != nil {
		defer raw.Close()
	}
	if err = mapRawHTTPError(resp); err != nil {
		return models.Cursor{}, err
	}
	if raw == nil {
		return models.Cursor{}, ErrStreamIncomplete
	}

	dec := json.NewDecoder(raw)
	for {
		var f changeFrame
		if err = dec.Decode(&f); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return models.Cursor{}, ctxErr
			}
			if errors.Is(err, io.EOF) {
				return models.Cursor{}, ErrStreamIncomplete
			}
			return models.Cursor{}, fmt.Errorf("decode change frame: %w", err)
		}

		switch f.Type {
		case frameChanged:
			if f.Record == nil || handler.OnRecord == nil {
				continue
			}
			if err = handler.OnRecord(*f.Record); err != nil {
				return models.Cursor{}, err
			}
		case frameDeleted:
			if f.Tombstone == nil || handler.OnDeletion == nil {
				continue
			}
			if err = handler.OnDeletion(*f.Tombstone); err != nil {
				return models.Cursor{}, err
			}
		case frameComplete:
			return models.Cursor{Zone: zone, Token: f.Cursor, UpdatedAt: time.Now()}, nil
		case frameError:
			return models.Cursor{}, fmt.Errorf("remote change stream for zone %s: %s", zone, f.Error)
		default:
			h.log.Debug().
				Str("func", "httpRemoteStore.FetchChanges").
				Str("frame", f.Type).
				Msg("skipping unknown change frame")
		}
	}
}

// Subscribe opens a server-sent events stream; each "data: " line carries
// one push notification.
func (h *httpRemoteStore) Subscribe(ctx context.Context, recordType models.RecordType) (<-chan models.PushNotification, error) {
	resp, err := h.authedRequest(ctx, h.stream).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetPathParam("recordType", string(recordType)).
		Get("/api/subscriptions/{recordType}")
	if err != nil {
		return nil, fmt.Errorf("subscribe request: %w", err)
	}
	raw := resp.RawBody()
	if err = mapRawHTTPError(resp); err != nil {
		if raw != nil {
			raw.Close()
		}
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("subscribe %s: empty response body", recordType)
	}

	out := make(chan models.PushNotification, 1)
	go func() {
		defer close(out)
		defer raw.Close()

		sc := bufio.NewScanner(raw)
		sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for sc.Scan() {
			line := sc.Bytes()
			if !bytes.HasPrefix(line, []byte("data: ")) {
				continue
			}

			var n models.PushNotification
			if err := json.Unmarshal(bytes.TrimPrefix(line, []byte("data: ")), &n); err != nil {
				h.log.Warn().Err(err).
					Str("func", "httpRemoteStore.Subscribe").
					Str("record_type", string(recordType)).
					Msg("skipping malformed notification")
				continue
			}
			if n.RecordType == "" {
				n.RecordType = recordType
			}

			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil && ctx.Err() == nil {
			h.log.Warn().Err(err).
				Str("func", "httpRemoteStore.Subscribe").
				Str("record_type", string(recordType)).
				Msg("subscription stream broken")
		}
	}()

	return out, nil
}

func (h *httpRemoteStore) authedRequest(ctx context.Context, client *resty.Client) *resty.Request {
	req := client.R().SetContext(ctx)
	if h.token != "" {
		req.SetHeader("Authorization", "Bearer "+h.token)
	}
	if h.deviceID != "" {
		req.SetHeader(headerDeviceID, h.deviceID)
	}
	if h.accountID != "" {
		req.SetHeader(headerAccountID, h.accountID)
	}
	return req
}

func toRecordResults(in []wireResult) []models.RecordResult {
	out := make([]models.RecordResult, 0, len(in))
	for _, r := range in {
		var err error
		if r.Error != "" {
			err = fmt.Errorf("%w: %s", ErrRecordRejected, r.Error)
		}
		out = append(out, models.RecordResult{ID: r.ID, Err: err})
	}
	return out
}

func parseAccountIDFromJWT(tokenString string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}
