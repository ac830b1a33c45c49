package gpt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diet-planner/internal/models"
)

type capturedRequest struct {
	Model          string `json:"model"`
	Seed           *int   `json:"seed"`
	ResponseFormat *struct {
		Type openai.ChatCompletionResponseFormatType `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionServer(t *testing.T, status int, content string, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		if got != nil {
			assert.NoError(t, json.Unmarshal(body, got))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeneratePlanMissingAPIKey(t *testing.T) {
	_, err := NewClient("", "").GeneratePlan(context.Background(), models.DefaultProfile(), 1800, 7)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGeneratePlanSendsSchemaAndSeed(t *testing.T) {
	var got capturedRequest
	srv := completionServer(t, http.StatusOK, "```json\n{\"days\": []}\n```", &got)

	client := NewClient("test-key", srv.URL+"/v1").WithModel("gpt-test").WithTemperature(0.5)
	profile := models.DefaultProfile()
	profile.FastingType = models.FastingNineToFive

	raw, err := client.GeneratePlan(context.Background(), profile, 1650, 12345)
	require.NoError(t, err)
	assert.JSONEq(t, `{"days": []}`, string(raw))

	assert.Equal(t, "gpt-test", got.Model)
	require.NotNil(t, got.Seed)
	assert.Equal(t, 12345, *got.Seed)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONSchema, got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, "1650 kcal/día")
	assert.Contains(t, got.Messages[1].Content, "09:00 a 17:00")
	assert.Contains(t, got.Messages[1].Content, "12345")
}

func TestGeneratePlanRateLimited(t *testing.T) {
	srv := completionServer(t, http.StatusTooManyRequests, "", nil)

	_, err := NewClient("test-key", srv.URL+"/v1").GeneratePlan(context.Background(), models.DefaultProfile(), 1800, 1)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestGeneratePlanRejectsProse(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "Claro, aquí tienes tu plan semanal.", nil)

	_, err := NewClient("test-key", srv.URL+"/v1").GeneratePlan(context.Background(), models.DefaultProfile(), 1800, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestPlanSchemaRequiresEveryField(t *testing.T) {
	data, err := json.Marshal(planSchema())
	require.NoError(t, err)

	var schema struct {
		Required   []string `json:"required"`
		Properties struct {
			Days struct {
				Items struct {
					Required   []string `json:"required"`
					Properties struct {
						Meals struct {
							Items struct {
								Required []string `json:"required"`
							} `json:"items"`
						} `json:"meals"`
					} `json:"properties"`
				} `json:"items"`
			} `json:"days"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, []string{"days"}, schema.Required)
	assert.ElementsMatch(t, []string{"day", "totalCalories", "waterGoal", "meals"}, schema.Properties.Days.Items.Required)
	assert.ElementsMatch(t,
		[]string{"name", "type", "time", "ingredients", "instructions", "calories", "prepTime"},
		schema.Properties.Days.Items.Properties.Meals.Items.Required)
}
