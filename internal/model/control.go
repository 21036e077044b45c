package model

// Control is a prepared control task of a configuration item (e.g. `restart` on a server).
type Control struct {
	CIID       string
	TaskName   string
	Parameters map[string]string
	Raw        []byte
}
