package assistant

import (
	"fmt"

	embedded "google.golang.org/genproto/googleapis/assistant/embedded/v1alpha2"
)

func encode(msg Outbound) (*embedded.AssistRequest, error) {
	switch m := msg.(type) {
	case StartConfig:
		return &embedded.AssistRequest{
			Type: &embedded.AssistRequest_Config{Config: encodeConfig(m)},
		}, nil
	case AudioIn:
		return &embedded.AssistRequest{
			Type: &embedded.AssistRequest_AudioIn{AudioIn: m.Data},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported outbound message %T", msg)
	}
}

func encodeConfig(c StartConfig) *embedded.AssistConfig {
	return &embedded.AssistConfig{
		Type: &embedded.AssistConfig_AudioInConfig{
			AudioInConfig: &embedded.AudioInConfig{
				Encoding:        inputEncoding(c.Input.Encoding),
				SampleRateHertz: int32(c.Input.SampleRateHertz),
			},
		},
		AudioOutConfig: &embedded.AudioOutConfig{
			Encoding:         outputEncoding(c.Output.Encoding),
			SampleRateHertz:  int32(c.Output.SampleRateHertz),
			VolumePercentage: int32(c.VolumePercentage),
		},
		DialogStateIn: &embedded.DialogStateIn{
			ConversationState: c.ContinuationToken,
			LanguageCode:      c.LanguageCode,
		},
		DeviceConfig: &embedded.DeviceConfig{
			DeviceId:      c.DeviceID,
			DeviceModelId: c.DeviceModelID,
		},
	}
}

func inputEncoding(e Encoding) embedded.AudioInConfig_Encoding {
	if e == EncodingFLAC {
		return embedded.AudioInConfig_FLAC
	}
	return embedded.AudioInConfig_LINEAR16
}

func outputEncoding(e Encoding) embedded.AudioOutConfig_Encoding {
	if e == EncodingMP3 {
		return embedded.AudioOutConfig_MP3
	}
	return embedded.AudioOutConfig_LINEAR16
}

// Decode splits a server response into its parts in the order the
// interpreter applies them: end of utterance, transcripts, dialog state,
// audio, then device action.
func Decode(resp *embedded.AssistResponse) []Inbound {
	var out []Inbound
	if resp.GetEventType() == embedded.AssistResponse_END_OF_UTTERANCE {
		out = append(out, EndOfUtterance{})
	}
	for _, result := range resp.GetSpeechResults() {
		if result.GetTranscript() == "" {
			continue
		}
		out = append(out, Transcript{Text: result.GetTranscript(), Stability: result.GetStability()})
	}
	if dialog := resp.GetDialogStateOut(); dialog != nil {
		out = append(out, DialogUpdate{
			DisplayText:       dialog.GetSupplementalDisplayText(),
			ContinuationToken: dialog.GetConversationState(),
			VolumePercentage:  int(dialog.GetVolumePercentage()),
			FollowOn:          dialog.GetMicrophoneMode() == embedded.DialogStateOut_DIALOG_FOLLOW_ON,
		})
	}
	if data := resp.GetAudioOut().GetAudioData(); len(data) > 0 {
		out = append(out, AudioOut{Data: data})
	}
	if raw := resp.GetDeviceAction().GetDeviceRequestJson(); raw != "" {
		out = append(out, DeviceAction{RequestJSON: []byte(raw)})
	}
	return out
}
