package planclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"diet-planner/internal/models"
	"diet-planner/pkg/logger"
)

func testMeal(name string) map[string]any {
	return map[string]any{
		"name":         name,
		"type":         "Comida",
		"time":         "14:00",
		"ingredients":  []string{"garbanzos", "espinacas"},
		"instructions": []string{"Saltear", "Servir"},
		"calories":     550,
		"prepTime":     "20 min",
	}
}

func testDays(n int) []map[string]any {
	labels := []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo", "Extra"}
	days := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, map[string]any{
			"day":           labels[i%len(labels)],
			"totalCalories": 1650,
			"waterGoal":     "2 litros",
			"meals":         []map[string]any{testMeal("Desayuno"), testMeal("Guiso")},
		})
	}
	return days
}

func planJSON(t *testing.T, days []map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{"days": days})
	require.NoError(t, err)
	return b
}

type recorder struct {
	hits   atomic.Int32
	bodies chan Request
}

func newRecorder() *recorder {
	return &recorder{bodies: make(chan Request, 8)}
}

func (r *recorder) server(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.hits.Add(1)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

		var in Request
		data, _ := io.ReadAll(req.Body)
		if assert.NoError(t, json.Unmarshal(data, &in)) {
			r.bodies <- in
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRequestPlanSuccess(t *testing.T) {
	rec := newRecorder()
	srv := rec.server(t, http.StatusOK, planJSON(t, testDays(7)))

	profile := models.DefaultProfile()
	profile.Allergies = "frutos secos"
	client := New(srv.URL, WithSeedSource(func() int { return 42 }))

	plan, err := client.RequestPlan(context.Background(), profile, 1660)
	require.NoError(t, err)
	require.Len(t, plan.Days, models.DaysPerPlan)
	for _, day := range plan.Days {
		require.NotEmpty(t, day.Meals)
		for _, meal := range day.Meals {
			assert.Greater(t, meal.Calories, 0.0)
			assert.NotEmpty(t, meal.Ingredients)
		}
	}

	sent := <-rec.bodies
	assert.Equal(t, 1660, sent.TargetCalories)
	assert.Equal(t, 42, sent.Seed)
	assert.Equal(t, profile, sent.UserProfile)
	assert.EqualValues(t, 1, rec.hits.Load())
}

func TestRequestPlanSendsFreshSeeds(t *testing.T) {
	rec := newRecorder()
	srv := rec.server(t, http.StatusOK, planJSON(t, testDays(7)))

	var n int
	client := New(srv.URL, WithSeedSource(func() int { n++; return n }))

	for i := 0; i < 2; i++ {
		_, err := client.RequestPlan(context.Background(), models.DefaultProfile(), 1800)
		require.NoError(t, err)
	}

	first, second := <-rec.bodies, <-rec.bodies
	assert.NotEqual(t, first.Seed, second.Seed)
}

func TestRequestPlanRejectsInvalidShapes(t *testing.T) {
	withoutMeals := testDays(7)
	delete(withoutMeals[3], "meals")

	emptyMeals := testDays(7)
	emptyMeals[0]["meals"] = []map[string]any{}

	zeroCalories := testDays(7)
	badMeal := testMeal("Cena")
	badMeal["calories"] = 0
	zeroCalories[6]["meals"] = []map[string]any{badMeal}

	missingWater := testDays(7)
	delete(missingWater[2], "waterGoal")

	tests := map[string][]byte{
		"six days":          planJSON(t, testDays(6)),
		"eight days":        planJSON(t, testDays(8)),
		"day without meals": planJSON(t, withoutMeals),
		"day with no meals": planJSON(t, emptyMeals),
		"zero calories":     planJSON(t, zeroCalories),
		"missing waterGoal": planJSON(t, missingWater),
		"no days":           []byte(`{"plan": []}`),
		"not json":          []byte(`Aquí tienes tu plan`),
		"trailing data":     append(planJSON(t, testDays(7)), []byte(` {"days": []}`)...),
	}

	for _, field := range []string{"name", "type", "time", "ingredients", "instructions", "calories", "prepTime"} {
		days := testDays(7)
		meal := testMeal("Cena")
		delete(meal, field)
		days[5]["meals"] = []map[string]any{testMeal("Desayuno"), meal}
		tests["meal without "+field] = planJSON(t, days)
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := newRecorder()
			srv := rec.server(t, http.StatusOK, body)

			plan, err := New(srv.URL).RequestPlan(context.Background(), models.DefaultProfile(), 1700)
			require.ErrorIs(t, err, ErrInvalidResponse)
			assert.Nil(t, plan)
			assert.False(t, errors.Is(err, ErrConnectivity))
			assert.EqualValues(t, 1, rec.hits.Load(), "invalid responses are not retried")
		})
	}
}

func TestRequestPlanRateLimited(t *testing.T) {
	primary := newRecorder()
	fallback := newRecorder()
	p := primary.server(t, http.StatusTooManyRequests, []byte(`{"error":"quota exceeded"}`))
	f := fallback.server(t, http.StatusOK, planJSON(t, testDays(7)))

	plan, err := New(p.URL, WithFallbackEndpoint(f.URL)).RequestPlan(context.Background(), models.DefaultProfile(), 1700)
	require.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, errors.Is(err, ErrConnectivity))
	assert.Nil(t, plan)

	var planErr *Error
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, http.StatusTooManyRequests, planErr.Status)
	assert.Equal(t, "quota exceeded", planErr.Message)

	assert.EqualValues(t, 1, primary.hits.Load())
	assert.EqualValues(t, 0, fallback.hits.Load())
}

func TestRequestPlanServerErrorTriesFallbackOnce(t *testing.T) {
	primary := newRecorder()
	fallback := newRecorder()
	p := primary.server(t, http.StatusInternalServerError, []byte(`{"error":"boom"}`))
	f := fallback.server(t, http.StatusBadGateway, []byte(`{"error":"still down"}`))

	plan, err := New(p.URL, WithFallbackEndpoint(f.URL)).RequestPlan(context.Background(), models.DefaultProfile(), 1700)
	require.ErrorIs(t, err, ErrConnectivity)
	assert.False(t, errors.Is(err, ErrRateLimited))
	assert.Nil(t, plan)

	assert.EqualValues(t, 1, primary.hits.Load())
	assert.EqualValues(t, 1, fallback.hits.Load())
}

func TestRequestPlanWithoutFallbackRetriesPrimaryOnce(t *testing.T) {
	rec := newRecorder()
	srv := rec.server(t, http.StatusServiceUnavailable, nil)

	_, err := New(srv.URL).RequestPlan(context.Background(), models.DefaultProfile(), 1700)
	require.ErrorIs(t, err, ErrConnectivity)
	assert.EqualValues(t, 2, rec.hits.Load())
}

func TestRequestPlanTransportFailureUsesFallback(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	fallback := newRecorder()
	f := fallback.server(t, http.StatusOK, planJSON(t, testDays(7)))

	client := New(deadURL, WithFallbackEndpoint(f.URL), WithLogger(logger.Wrap(zaptest.NewLogger(t))))
	plan, err := client.RequestPlan(context.Background(), models.DefaultProfile(), 1700)
	require.NoError(t, err)
	assert.Len(t, plan.Days, 7)
	assert.EqualValues(t, 1, fallback.hits.Load())
}

func TestRequestPlanConfigurationErrorIsNotRetried(t *testing.T) {
	rec := newRecorder()
	body := fmt.Sprintf(`{"error":"API key missing","code":%q}`, ConfigurationCode)
	srv := rec.server(t, http.StatusInternalServerError, []byte(body))

	plan, err := New(srv.URL).RequestPlan(context.Background(), models.DefaultProfile(), 1700)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.False(t, errors.Is(err, ErrConnectivity))
	assert.Nil(t, plan)
	assert.EqualValues(t, 1, rec.hits.Load())
}

func TestRequestPlanCanceledContextSkipsFallback(t *testing.T) {
	fallback := newRecorder()
	f := fallback.server(t, http.StatusOK, planJSON(t, testDays(7)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(f.URL, WithFallbackEndpoint(f.URL)).RequestPlan(ctx, models.DefaultProfile(), 1700)
	require.ErrorIs(t, err, ErrConnectivity)
	assert.EqualValues(t, 0, fallback.hits.Load())
}

func TestWithTimeoutLeavesSharedClientUntouched(t *testing.T) {
	shared := &http.Client{}
	for name, opts := range map[string][]Option{
		"timeout last":  {WithHTTPClient(shared), WithTimeout(3 * time.Second)},
		"timeout first": {WithTimeout(3 * time.Second), WithHTTPClient(shared)},
	} {
		t.Run(name, func(t *testing.T) {
			c := New("http://planner.invalid", opts...)

			assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
			assert.NotSame(t, shared, c.httpClient)
			assert.Zero(t, shared.Timeout)
		})
	}

	c := New("http://planner.invalid", WithHTTPClient(http.DefaultClient), WithTimeout(time.Second))
	assert.Equal(t, time.Second, c.httpClient.Timeout)
	assert.Zero(t, http.DefaultClient.Timeout)
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(newError(ErrRateLimited, 429, "", nil)), "Límite")
	assert.Contains(t, UserMessage(newError(ErrConnectivity, 0, "", nil)), "conectar")
	assert.Contains(t, UserMessage(newError(ErrInvalidResponse, 200, "", nil)), "inválido")
	assert.Contains(t, UserMessage(newError(ErrConfiguration, 500, "", nil)), "configurado")
}
