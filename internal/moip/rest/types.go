package rest

import "time"

// AuthSession is the cached login state: the bearer token and when it
// expires, computed from the login response's expiresIn seconds.
type AuthSession struct {
	Token     string
	ExpiresAt time.Time
}

// listEnvelope is the controller's collection response. It carries bare
// numeric IDs only; details require one fetch per ID.
type listEnvelope struct {
	Items []int `json:"items"`
}

// loginRequest is the POST /base/auth/login body.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the controller's login reply.
type loginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// settingsUpdate is the partial-update document for PUTs: only the fields
// present under settings are changed.
type settingsUpdate struct {
	Settings map[string]any `json:"settings"`
}

// Unit is one physical endpoint chassis. Hardware identity and health
// live under status; the display name is a settable setting.
type Unit struct {
	ID       int          `json:"id"`
	Settings UnitSettings `json:"settings"`
	Status   UnitStatus   `json:"status"`
}

// UnitSettings holds the unit's configurable fields.
type UnitSettings struct {
	Name string `json:"name"`
}

// UnitStatus holds the unit's reported hardware identity.
type UnitStatus struct {
	MAC      string `json:"mac"`
	IP       string `json:"ip"`
	Model    string `json:"model"`
	Firmware string `json:"firmware"`
}

// Group is one logical transmitter or receiver endpoint. The
// protocol-visible index and display name live in settings; associations
// link the group to its unit and video resources.
//
// ID and Settings.Index are pointers: a group record missing either
// cannot be tied to a device slot and reconciliation must skip it.
type Group struct {
	ID           *int              `json:"id"`
	Settings     GroupSettings     `json:"settings"`
	Associations GroupAssociations `json:"associations"`
}

// GroupSettings holds the group's configurable fields plus the explicit
// type marker some firmware versions report.
type GroupSettings struct {
	Index *int   `json:"index"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// GroupAssociations links a group to related resources by ID.
type GroupAssociations struct {
	Unit    *int `json:"unit"`
	VideoTx *int `json:"video_tx"`
	VideoRx *int `json:"video_rx"`
}

// VideoTx is the video resource behind a transmitter group: the live
// input signal as the controller sees it.
type VideoTx struct {
	ID     int           `json:"id"`
	Status VideoTxStatus `json:"status"`
}

// VideoTxStatus reports the transmitter's input signal. Resolution is a
// display string ("3840x2160"); HDCP is a version string or "none";
// State reads "streaming" when a signal is present.
type VideoTxStatus struct {
	Resolution string `json:"resolution"`
	FrameRate  string `json:"frame_rate"`
	ColorDepth string `json:"color_depth"`
	HDCP       string `json:"hdcp"`
	SignalType string `json:"signal_type"`
	State      string `json:"state"`
}

// VideoRx is the video resource behind a receiver group. Settings carry
// the configurable output options with their supported values; status
// carries the live output state.
type VideoRx struct {
	ID       int             `json:"id"`
	Settings VideoRxSettings `json:"settings"`
	Status   VideoRxStatus   `json:"status"`
}

// VideoRxSettings holds the receiver's output configuration.
type VideoRxSettings struct {
	Resolution          string   `json:"resolution"`
	SupportedResolution []string `json:"supported_resolution"`
	HDCP                string   `json:"hdcp"`
	SupportedHDCP       []string `json:"supported_hdcp"`
}

// VideoRxStatus reports the receiver's live output state.
type VideoRxStatus struct {
	State string `json:"state"`
}
