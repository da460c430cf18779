package chat

import (
	"regexp"
	"strings"

	"chatdesk/internal/outoforder"

	"github.com/tidwall/gjson"
)

// CodeInterpreterFailure is appended when a code interpreter response cannot be used.
const CodeInterpreterFailure = "Something went wrong with code interpreter... please try again."

var (
	assistantIDMarker  = regexp.MustCompile(`codeInterpreterAssistantId=(.*)`)
	responseDataMarker = regexp.MustCompile(`codeInterpreterResponseData=(.*)`)
)

// accumulator builds the assistant text from stream chunks.
type accumulator struct {
	text      strings.Builder
	reordered *outoforder.Results

	// plain text received before the stream switched to out-of-order mode
	base     string
	switched bool

	// set by code interpreter markers
	assistantID     string
	codeInterpreter map[string]any
	needsNewThread  bool
}

func newAccumulator(maxPending int) *accumulator {
	return &accumulator{
		reordered: outoforder.New(outoforder.WithMaxPending(maxPending)),
	}
}

// Text is the assistant content so far.
func (a *accumulator) Text() string {
	return a.text.String()
}

// AddChunk handles one chunk of a plain stream. It reports whether the
// chunk only carried a code interpreter assistant id.
func (a *accumulator) AddChunk(chunk string) (idOnly bool) {
	if m := assistantIDMarker.FindStringSubmatch(chunk); m != nil {
		a.assistantID = m[1]
		return true
	}
	if m := responseDataMarker.FindStringSubmatch(chunk); m != nil {
		a.addCodeInterpreterResponse(m[1])
		return false
	}
	a.text.WriteString(chunk)
	return false
}

func (a *accumulator) addCodeInterpreterResponse(payload string) {
	if !gjson.Valid(payload) {
		a.text.WriteString(CodeInterpreterFailure)
		return
	}
	resp := gjson.Parse(payload)
	data := resp.Get("data.data")
	if resp.Get("success").Bool() && data.IsObject() && data.Get("textContent").Exists() {
		if m, ok := data.Value().(map[string]any); ok {
			a.codeInterpreter = m
		}
		a.text.WriteString(data.Get("textContent").String())
		return
	}
	if strings.Contains(resp.Get("error").String(), "Error with run status") {
		a.needsNewThread = true
	}
	a.text.WriteString(CodeInterpreterFailure)
}

// AddOutOfOrder feeds a tagged chunk to the reassembler; the content becomes its text.
func (a *accumulator) AddOutOfOrder(chunk string) error {
	if !a.switched {
		a.base = a.text.String()
		a.switched = true
	}
	if err := a.reordered.AddRaw(chunk); err != nil {
		return err
	}
	a.text.Reset()
	a.text.WriteString(a.base)
	a.text.WriteString(a.reordered.Text())
	return nil
}
