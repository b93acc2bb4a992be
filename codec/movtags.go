package codec

// movAudioCodecID resolves a QuarkTime/MOV-style audio fourcc to a codec id,
// standing in for the original source's
// ff_codec_get_id(ff_codec_movaudio_tags, q->fourcc) call (smoothstreaming.c,
// open_audio_demuxer) ahead of its aacl/wmap special cases. The full table
// lives in libavformat/mov_tags.c, which isn't part of the retrieved pack;
// this carries the entries common enough to show up in Smooth Streaming
// manifests in practice and returns "" for anything else, same as an
// unmatched ff_codec_get_id lookup.
func movAudioCodecID(fourcc string) string {
	switch fourcc {
	case "mp4a":
		return "aac"
	case ".mp3":
		return "mp3"
	case "ac-3":
		return "ac3"
	case "ec-3":
		return "eac3"
	case "samr":
		return "amr_nb"
	case "sawb":
		return "amr_wb"
	case "twos":
		return "pcm_s16be"
	case "sowt":
		return "pcm_s16le"
	case "raw ", "NONE":
		return "pcm_s16le"
	case "alaw":
		return "pcm_alaw"
	case "ulaw":
		return "pcm_mulaw"
	case "in24":
		return "pcm_s24be"
	case "in32":
		return "pcm_s32be"
	case "fl32":
		return "pcm_f32be"
	case "fl64":
		return "pcm_f64be"
	case "Qclp":
		return "qcelp"
	default:
		return ""
	}
}
