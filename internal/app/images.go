package app

import "strings"

// ParticipantImageURL joins a participant photo onto the image root
func ParticipantImageURL(base, image string) string {
	return imageURL(base, "participants", image)
}

// EventCoverURL joins an event cover onto the image root
func EventCoverURL(base, cover string) string {
	return imageURL(base, "events", cover)
}

func imageURL(base, dir, file string) string {
	if file == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + dir + "/" + strings.TrimLeft(file, "/")
}
