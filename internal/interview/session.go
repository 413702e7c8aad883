package interview

import (
	"fmt"

	"github.com/hireloop/interview-cli/internal/utils"

	"go.uber.org/zap"
)

const (
	infoPath   = "/interview-info"
	startPath  = "/start-interview"
	answerPath = "/process-answer"
	textPath   = "/text-answer"
	endPath    = "/end-interview"

	answerFilename = "answer.wav"
	answerMIMEType = "audio/wav"

	// Preview length for transcriptions and AI feedback in debug logs.
	maxLogPreview = 200
)

// Info fetches the current status and question for a session.
func (c *Client) Info(sessionID string) (*Info, error) {
	var info Info
	if err := c.getJSON(fmt.Sprintf("%s/%s", infoPath, sessionID), &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// Start begins the interview and returns the first question.
func (c *Client) Start(sessionID string) (*Started, error) {
	var started Started
	if err := c.postMultipart(fmt.Sprintf("%s/%s", startPath, sessionID), nil, nil, &started); err != nil {
		return nil, err
	}

	return &started, nil
}

// ProcessAnswer submits a recorded answer as a WAV blob.
func (c *Client) ProcessAnswer(sessionID string, wav []byte) (*AnswerResult, error) {
	file := &filePart{
		Field:    "audio",
		Filename: answerFilename,
		MIMEType: answerMIMEType,
		Data:     wav,
	}

	var result AnswerResult
	if err := c.postMultipart(fmt.Sprintf("%s/%s", answerPath, sessionID), nil, file, &result); err != nil {
		return nil, err
	}

	c.logger.Debug("answer processed",
		zap.String("transcription_preview", utils.TruncateForLog(result.Transcription, maxLogPreview)),
		zap.Bool("completed", result.Completed),
	)

	return &result, nil
}

// TextAnswer submits a typed answer.
func (c *Client) TextAnswer(sessionID, text string) (*AnswerResult, error) {
	fields := map[string]string{"text": text}

	var result AnswerResult
	if err := c.postMultipart(fmt.Sprintf("%s/%s", textPath, sessionID), fields, nil, &result); err != nil {
		return nil, err
	}

	c.logger.Debug("text answer processed",
		zap.String("feedback_preview", utils.TruncateForLog(result.AIResponse, maxLogPreview)),
		zap.Bool("completed", result.Completed),
	)

	return &result, nil
}

// End terminates the interview early.
func (c *Client) End(sessionID string) error {
	return c.postMultipart(fmt.Sprintf("%s/%s", endPath, sessionID), nil, nil, nil)
}
