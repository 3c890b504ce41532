package negotiate

import (
	"strconv"
	"strings"
	"time"

	"github.com/gosipua/sipua/sdp"
)

// flipTable is the RFC 3264 §6.1 direction flip used when building an answer
// from an offer's media direction.
var flipTable = map[sdp.Direction]sdp.Direction{
	sdp.SendRecv: sdp.SendRecv,
	sdp.SendOnly: sdp.RecvOnly,
	sdp.RecvOnly: sdp.SendOnly,
	sdp.Inactive: sdp.Inactive,
}

// Options configures Negotiate (§4.4 inputs). A zero Options is usable:
// DefaultOptions fills in the documented defaults.
type Options struct {
	LocalIP         string
	RTPPort         int
	SupportedCodecs []uint8 // preference order; default [0, 8]
	DTMFPayloadType uint8   // default 101; 0 disables DTMF passthrough
	DefaultPtime    int
	SessionID       string // default: current Unix time in seconds, as a decimal string
}

// DefaultOptions returns the documented defaults, with LocalIP/RTPPort left
// for the caller to fill in (they have no sane library-wide default).
// SessionID is left empty here; Negotiate fills it in when it is empty.
func DefaultOptions() Options {
	return Options{
		SupportedCodecs: []uint8{0, 8},
		DTMFPayloadType: 101,
		DefaultPtime:    20,
	}
}

// Result is the Negotiate output: the answer session plus the chosen
// payload type, broken out since callers commonly need it without
// re-scanning the answer (§4.4 Output).
type Result struct {
	Answer      *sdp.Session
	ChosenPT    uint8
	DTMFOffered bool
}

// Negotiate builds an SDP answer for offer per RFC 3264, implementing the
// eight-step algorithm of §4.4.
func Negotiate(offer *sdp.Session, opts Options) (*Result, error) {
	if opts.SupportedCodecs == nil {
		opts.SupportedCodecs = []uint8{0, 8}
	}
	if opts.DefaultPtime == 0 {
		opts.DefaultPtime = 20
	}
	if opts.SessionID == "" {
		opts.SessionID = strconv.FormatInt(time.Now().Unix(), 10)
	}

	// 1. Select the first audio media.
	offeredMedia, ok := offer.FirstAudio()
	if !ok {
		return nil, errNoAudio()
	}

	// 2. Walk the offer's codec list in order; pick the first supported one.
	chosen, found := firstSupportedCodec(offeredMedia.Codecs, opts.SupportedCodecs)
	if !found {
		return nil, errNoCommonCodec(offeredPTs(offeredMedia.Codecs), opts.SupportedCodecs)
	}

	// 3. Scan for telephone-event.
	_, dtmfOffered := offeredMedia.HasTelephoneEvent()

	// 4. Determine answer ptime.
	ptime := opts.DefaultPtime
	if v, ok := offeredMedia.Attributes.Get("ptime"); ok {
		fields := strings.Fields(v)
		if len(fields) > 0 {
			if p, err := strconv.Atoi(fields[0]); err == nil {
				ptime = p
			}
		}
	}

	// 5. Flip direction.
	answerDir := flipTable[offeredMedia.Direction()]

	// Edge case: fill name/clock rate from the static table if the offer's
	// chosen codec had none (static PT with no rtpmap).
	if chosen.Name == "" {
		if static, ok := sdp.StaticCodecTable[chosen.PayloadType]; ok {
			chosen.Name = static.Name
			chosen.ClockRate = static.ClockRate
		}
	}

	// 6. Build the answer media.
	answerMedia := sdp.MediaDescription{
		Media:      "audio",
		Port:       opts.RTPPort,
		Proto:      offeredMedia.Proto,
		Formats:    []string{strconv.Itoa(int(chosen.PayloadType))},
		Attributes: sdp.NewAttributes(),
	}
	answerMedia.Attributes.Add("rtpmap", strconv.Itoa(int(chosen.PayloadType))+" "+chosen.Name+"/"+strconv.Itoa(int(chosen.ClockRate)))

	includeDTMF := dtmfOffered && opts.DTMFPayloadType > 0
	if includeDTMF {
		answerMedia.Formats = append(answerMedia.Formats, strconv.Itoa(int(opts.DTMFPayloadType)))
		answerMedia.Attributes.Add("rtpmap", strconv.Itoa(int(opts.DTMFPayloadType))+" telephone-event/8000")
		answerMedia.Attributes.Add("fmtp", strconv.Itoa(int(opts.DTMFPayloadType))+" 0-16")
	}

	// 7. Emit ptime and direction.
	answerMedia.Attributes.Add("ptime", strconv.Itoa(ptime))
	answerMedia.Attributes.Add(string(answerDir), "")

	answerMedia.Codecs = append(answerMedia.Codecs, chosen)
	if includeDTMF {
		answerMedia.Codecs = append(answerMedia.Codecs, sdp.Codec{
			PayloadType: opts.DTMFPayloadType, Name: "telephone-event", ClockRate: 8000,
		})
	}

	// 8. Compose the session shell.
	answer := &sdp.Session{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      opts.SessionID,
			SessionVersion: opts.SessionID,
			NetType:        "IN",
			AddrType:       "IP4",
			Address:        opts.LocalIP,
		},
		Name:       "-",
		Connection: &sdp.Connection{NetType: "IN", AddrType: "IP4", Address: opts.LocalIP},
		Timing:     "0 0",
		Attributes: sdp.NewAttributes(),
		Media:      []sdp.MediaDescription{answerMedia},
	}

	return &Result{Answer: answer, ChosenPT: chosen.PayloadType, DTMFOffered: includeDTMF}, nil
}

func firstSupportedCodec(offered []sdp.Codec, supported []uint8) (sdp.Codec, bool) {
	supportedSet := make(map[uint8]bool, len(supported))
	for _, pt := range supported {
		supportedSet[pt] = true
	}
	for _, c := range offered {
		if supportedSet[c.PayloadType] {
			return c, true
		}
	}
	return sdp.Codec{}, false
}

func offeredPTs(codecs []sdp.Codec) []uint8 {
	pts := make([]uint8, 0, len(codecs))
	for _, c := range codecs {
		pts = append(pts, c.PayloadType)
	}
	return pts
}
