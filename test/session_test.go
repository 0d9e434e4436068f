package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/2beens/posecoach/internal/coach"
	"github.com/2beens/posecoach/internal/pose"
	"github.com/2beens/posecoach/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// straightLegs is a seated pose with both knees straight and the torso leaning forward.
func straightLegs() pose.Frame {
	frame := make(pose.Frame, pose.NumLandmarks)
	for i := range frame {
		frame[i] = pose.Landmark{X: 0.5, Y: 0.5, Visibility: 0.9}
	}
	for _, leg := range [][4]int{
		{pose.LeftShoulder, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
		{pose.RightShoulder, pose.RightHip, pose.RightKnee, pose.RightAnkle},
	} {
		frame[leg[0]] = pose.Landmark{X: 0.65, Y: 0.24, Visibility: 0.9}
		frame[leg[1]] = pose.Landmark{X: 0.5, Y: 0.5, Visibility: 0.9}
		frame[leg[2]] = pose.Landmark{X: 0.5, Y: 0.7, Visibility: 0.9}
		frame[leg[3]] = pose.Landmark{X: 0.5, Y: 0.9, Visibility: 0.9}
	}
	return frame
}

func (s *IntegrationTestSuite) do(ctx context.Context, method, path string, body any) (int, []byte) {
	t := s.T()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) newSession(ctx context.Context, protocolName string) session.State {
	code, body := s.do(ctx, "POST", "/sessions", map[string]string{"protocol": protocolName})
	require.Equal(s.T(), http.StatusCreated, code, string(body))

	var st session.State
	require.NoError(s.T(), json.Unmarshal(body, &st))
	return st
}

func (s *IntegrationTestSuite) getState(ctx context.Context, id string) session.State {
	code, body := s.do(ctx, "GET", "/sessions/"+id, nil)
	require.Equal(s.T(), http.StatusOK, code, string(body))

	var st session.State
	require.NoError(s.T(), json.Unmarshal(body, &st))
	return st
}

func (s *IntegrationTestSuite) TestHealthAndVersion() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	code, body := s.do(ctx, "GET", "/version", nil)
	s.Equal(http.StatusOK, code)
	s.Equal("test-version-info", string(body))
}

func (s *IntegrationTestSuite) TestHoldCountsDown() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	st := s.newSession(ctx, "hamstring_stretch")
	defer s.do(ctx, "DELETE", "/sessions/"+st.SessionID, nil)

	code, body := s.do(ctx, "POST", fmt.Sprintf("/sessions/%s/start", st.SessionID), nil)
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = s.do(ctx, "POST", fmt.Sprintf("/sessions/%s/frames", st.SessionID), map[string]any{
		"bodies": []pose.Frame{straightLegs()},
	})
	require.Equal(t, http.StatusAccepted, code, string(body))

	require.Eventually(t, func() bool {
		st = s.getState(ctx, st.SessionID)
		return st.TimerSeconds <= 28
	}, 10*time.Second, 200*time.Millisecond)
	assert.Equal(t, session.StatusCountingDown, st.Status)
	assert.Equal(t, pose.LeftLeg, st.CurrentSide)

	code, body = s.do(ctx, "GET", fmt.Sprintf("/sessions/%s/frame", st.SessionID), nil)
	require.Equal(t, http.StatusOK, code, string(body))
	var overlay coach.Overlay
	require.NoError(t, json.Unmarshal(body, &overlay))
	assert.True(t, overlay.Verdict)
	assert.Equal(t, pose.LeftLeg, overlay.Mode)
	assert.Len(t, overlay.Frame, pose.NumLandmarks)

	code, _ = s.do(ctx, "POST", fmt.Sprintf("/sessions/%s/skip", st.SessionID), nil)
	require.Equal(t, http.StatusOK, code)
	st = s.getState(ctx, st.SessionID)
	assert.Equal(t, pose.RightLeg, st.CurrentSide)
	assert.Equal(t, 30, st.TimerSeconds)
}

func (s *IntegrationTestSuite) TestDetectorErrorIsReported() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	st := s.newSession(ctx, "shoulder_flexion")
	defer s.do(ctx, "DELETE", "/sessions/"+st.SessionID, nil)

	code, _ := s.do(ctx, "POST", fmt.Sprintf("/sessions/%s/start", st.SessionID), nil)
	require.Equal(t, http.StatusOK, code)

	code, body := s.do(ctx, "POST", fmt.Sprintf("/sessions/%s/frames", st.SessionID), map[string]any{
		"bodies": []pose.Frame{},
		"error":  pose.DetectorErrModelUnavailable,
	})
	require.Equal(t, http.StatusAccepted, code, string(body))

	require.Eventually(t, func() bool {
		st = s.getState(ctx, st.SessionID)
		return st.LastError != ""
	}, 10*time.Second, 200*time.Millisecond)
	assert.Equal(t, 5, st.TimerSeconds)
	assert.False(t, st.TimerRunning)
}

func (s *IntegrationTestSuite) TestFramesRateLimited() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	st := s.newSession(ctx, "shoulder_flexion")
	defer s.do(ctx, "DELETE", "/sessions/"+st.SessionID, nil)

	frames := map[string]any{"bodies": []pose.Frame{}}
	for i := 0; i < framesAllowedPerMin; i++ {
		code, body := s.do(ctx, "POST", fmt.Sprintf("/sessions/%s/frames", st.SessionID), frames)
		require.Equal(t, http.StatusAccepted, code, string(body))
	}

	code, _ := s.do(ctx, "POST", fmt.Sprintf("/sessions/%s/frames", st.SessionID), frames)
	assert.Equal(t, http.StatusTooManyRequests, code)

	// other sessions are not affected
	other := s.newSession(ctx, "shoulder_flexion")
	defer s.do(ctx, "DELETE", "/sessions/"+other.SessionID, nil)
	code, _ = s.do(ctx, "POST", fmt.Sprintf("/sessions/%s/frames", other.SessionID), frames)
	assert.Equal(t, http.StatusAccepted, code)
}

func (s *IntegrationTestSuite) TestUnknownSession() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	code, _ := s.do(ctx, "GET", "/sessions/does-not-exist", nil)
	s.Equal(http.StatusNotFound, code)

	code, _ = s.do(ctx, "POST", "/sessions", map[string]string{"protocol": "yoga_headstand"})
	s.Equal(http.StatusBadRequest, code)
}
