package viz

// Message types on the wire.
const (
	MessageOpen    = "open"
	MessageSetTime = "set_time"
	MessageLog     = "log"
	MessageClose   = "close"
)

// Archetype names for logged primitives.
const (
	ArchetypePoints3D     = "Points3D"
	ArchetypeLineStrips3D = "LineStrips3D"
)

// Message is one JSON frame of a recording session.
type Message struct {
	Type          string        `json:"type"`
	Session       string        `json:"session"`
	ApplicationID string        `json:"application_id,omitempty"`
	Timeline      *Timeline     `json:"timeline,omitempty"`
	Time          *int64        `json:"time,omitempty"`
	EntityPath    string        `json:"entity_path,omitempty"`
	Archetype     string        `json:"archetype,omitempty"`
	Points        *Points3D     `json:"points,omitempty"`
	Strips        *LineStrips3D `json:"strips,omitempty"`
}

func setTimeMessage(session string, timeline Timeline, value int64) Message {
	return Message{Type: MessageSetTime, Session: session, Timeline: &timeline, Time: &value}
}

func pointsMessage(session, path string, points Points3D) Message {
	return Message{Type: MessageLog, Session: session, EntityPath: path, Archetype: ArchetypePoints3D, Points: &points}
}

func stripsMessage(session, path string, strips LineStrips3D) Message {
	return Message{Type: MessageLog, Session: session, EntityPath: path, Archetype: ArchetypeLineStrips3D, Strips: &strips}
}
