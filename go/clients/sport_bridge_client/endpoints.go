package sport_bridge_client

const (
	// DefaultBaseURL is where the bike bridge listens on the rig
	DefaultBaseURL = "http://localhost:7070"

	StartSportPath = "/sport/start"
	QuitAppPath    = "/app/quit"

	JsonHeader      = "Content-Type"
	JsonContentType = "application/json"
)
