package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func makeRequest(t *testing.T, method, path string, body interface{}) (int, apiResponse) {
	t.Helper()

	var reqBody *bytes.Buffer = bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, baseURL()+"/api/v1"+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp.StatusCode, parsed
}

// setupClinician registers a clinician with an open weekday schedule and
// returns the new ID. Booking validates the clinician exists, so the row
// has to be created before anything can be scheduled against it.
func setupClinician(t *testing.T) uuid.UUID {
	t.Helper()

	status, resp := makeRequest(t, http.MethodPost, "/clinicians",
		map[string]interface{}{
			"name":      "Dr. Integration Test",
			"email":     fmt.Sprintf("clinician-%s@clinic.local", uuid.New()),
			"specialty": "physiotherapy",
		})
	require.Equal(t, http.StatusCreated, status, "clinician setup failed: %+v", resp.Error)

	var clinician struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &clinician))
	clinicianID := clinician.ID

	status, resp = makeRequest(t, http.MethodPut,
		fmt.Sprintf("/clinicians/%s/schedule", clinicianID),
		map[string]interface{}{
			"schedule": map[string]interface{}{
				"monday":    openDay(),
				"tuesday":   openDay(),
				"wednesday": openDay(),
				"thursday":  openDay(),
				"friday":    openDay(),
			},
		})
	require.Equal(t, http.StatusOK, status, "schedule setup failed: %+v", resp.Error)
	return clinicianID
}

func openDay() map[string]interface{} {
	return map[string]interface{}{
		"enabled": true,
		"slots": []map[string]string{
			{"start": "08:00", "end": "18:00"},
		},
	}
}

// futureWeekday returns a YYYY-MM-DD date at least a week out that falls
// Monday through Friday, so it lands inside the open schedule.
func futureWeekday(t *testing.T) string {
	t.Helper()
	d := time.Now().AddDate(0, 0, 7)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func bookingPayload(clinicianID uuid.UUID, date, start string) map[string]interface{} {
	return map[string]interface{}{
		"patient_id":   uuid.New().String(),
		"patient_name": "Integration Patient",
		"clinician_id": clinicianID.String(),
		"date":         date,
		"start_time":   start,
	}
}
