// Package omaha is the wire codec for the update-ping protocol spoken by
// the update engine on client devices. Requests and responses are small
// Omaha-style XML documents; this package decodes the handful of fields the
// server negotiates on and encodes responses. It holds no state: a payload
// that fails to decode leaves the host ping registry untouched because it
// never reaches it.
package omaha

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/flatcar-linux/dev-util/impl/dverr"
)

// Ping is the decoded content of one update ping.
type Ping struct {
	AppId       string
	Version     string // version the client reports running
	Track       string // the label the client is negotiating for
	Board       string
	EventType   int
	EventStatus int
	UpdateCheck bool // true if the client asked whether an update exists
}

type requestEvent struct {
	Type   int `xml:"eventtype,attr"`
	Result int `xml:"eventresult,attr"`
}

type requestApp struct {
	AppId       string        `xml:"appid,attr"`
	Version     string        `xml:"version,attr"`
	Track       string        `xml:"track,attr"`
	Board       string        `xml:"board,attr"`
	UpdateCheck *struct{}     `xml:"updatecheck"`
	Event       *requestEvent `xml:"event"`
}

type updateRequest struct {
	XMLName xml.Name    `xml:"gupdate"`
	Version string      `xml:"version,attr"`
	App     *requestApp `xml:"app"`
}

// ParseRequest decodes an update ping payload. Malformed XML or a request
// with no app element is a protocol error.
func ParseRequest(raw []byte) (Ping, error) {
	var req updateRequest
	if err := xml.Unmarshal(raw, &req); err != nil {
		return Ping{}, fmt.Errorf("%w: undecodable update request: %s", dverr.ErrProtocol, err)
	}
	if req.App == nil {
		return Ping{}, fmt.Errorf("%w: update request has no app element", dverr.ErrProtocol)
	}
	ping := Ping{
		AppId:       req.App.AppId,
		Version:     req.App.Version,
		Track:       req.App.Track,
		Board:       req.App.Board,
		UpdateCheck: req.App.UpdateCheck != nil,
	}
	if req.App.Event != nil {
		ping.EventType = req.App.Event.Type
		ping.EventStatus = req.App.Event.Result
	}
	return ping, nil
}

type responseUpdateCheck struct {
	Status   string `xml:"status,attr"`
	Codebase string `xml:"codebase,attr,omitempty"`
	Deadline string `xml:"deadline,attr,omitempty"`
}

type responseApp struct {
	Status      string              `xml:"status,attr"`
	UpdateCheck responseUpdateCheck `xml:"updatecheck"`
}

type daystart struct {
	ElapsedSeconds int `xml:"elapsed_seconds,attr"`
}

type updateResponse struct {
	XMLName  xml.Name    `xml:"gupdate"`
	Xmlns    string      `xml:"xmlns,attr"`
	Protocol string      `xml:"protocol,attr"`
	Daystart daystart    `xml:"daystart"`
	App      responseApp `xml:"app"`
}

const responseNs = "http://www.google.com/update2/response"

// Codec builds update ping responses. UrlBase is the base URL that update
// payloads are served from; Critical marks offered payloads as mandatory so
// the client applies them immediately.
type Codec struct {
	UrlBase  string
	Critical bool
}

// BuildResponse encodes the outbound payload for a resolved label. An empty
// label means no update is available.
func (c Codec) BuildResponse(label string) ([]byte, error) {
	resp := updateResponse{
		Xmlns:    responseNs,
		Protocol: "2.0",
		Daystart: daystart{ElapsedSeconds: secondsSinceMidnight()},
		App:      responseApp{Status: "ok"},
	}
	if label == "" {
		resp.App.UpdateCheck = responseUpdateCheck{Status: "noupdate"}
	} else {
		resp.App.UpdateCheck = responseUpdateCheck{
			Status:   "ok",
			Codebase: fmt.Sprintf("%s/%s/update.gz", c.UrlBase, label),
		}
		if c.Critical {
			resp.App.UpdateCheck.Deadline = "now"
		}
	}
	body, err := xml.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func secondsSinceMidnight() int {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(now.Sub(midnight).Seconds())
}
