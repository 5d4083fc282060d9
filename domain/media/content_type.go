package media

// MIME type constants for the audio containers ffmpeg can write here
const (
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeM4A  = "audio/mp4"
	MimeTypeOGG  = "audio/ogg"
	MimeTypeFLAC = "audio/flac"
	MimeTypeWAV  = "audio/wav"
	MimeTypeOpus = "audio/opus"

	mimeTypeOctetStream = "application/octet-stream"
)

var contentTypes = map[string]string{
	"mp3":  MimeTypeMP3,
	"m4a":  MimeTypeM4A,
	"aac":  MimeTypeM4A,
	"ogg":  MimeTypeOGG,
	"oga":  MimeTypeOGG,
	"flac": MimeTypeFLAC,
	"wav":  MimeTypeWAV,
	"opus": MimeTypeOpus,
}

// ContentTypeFor returns the MIME type used when uploading an audio file
func ContentTypeFor(extension string) string {
	if ct, ok := contentTypes[NormalizeExtension(extension)]; ok {
		return ct
	}
	return mimeTypeOctetStream
}
