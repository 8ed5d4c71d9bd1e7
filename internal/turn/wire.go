package turn

import (
	"encoding/binary"
	"fmt"
)

// audioFrameTag is the 4-byte ASCII tag prefixing every binary audio frame.
const audioFrameTag = "AUD0"

// audioFrameHeaderLen is tag(4) + turn_id(4) + seq(4).
const audioFrameHeaderLen = 4 + 4 + 4

// EncodeAudioFrame builds the wire form of one AUD0 binary frame: a 4-byte
// ASCII tag, a little-endian uint32 turn id, a little-endian uint32
// sequence number, followed by the PCM payload.
func EncodeAudioFrame(turnID, seq uint32, payload []byte) []byte {
	buf := make([]byte, audioFrameHeaderLen+len(payload))
	copy(buf[0:4], audioFrameTag)
	binary.LittleEndian.PutUint32(buf[4:8], turnID)
	binary.LittleEndian.PutUint32(buf[8:12], seq)
	copy(buf[audioFrameHeaderLen:], payload)
	return buf
}

// DecodeAudioFrame parses a raw binary frame back into its fields. Returns
// an error if the frame is too short or misses the tag.
func DecodeAudioFrame(raw []byte) (turnID, seq uint32, payload []byte, err error) {
	if len(raw) < audioFrameHeaderLen {
		return 0, 0, nil, fmt.Errorf("turn: audio frame too short: %d bytes", len(raw))
	}
	if string(raw[0:4]) != audioFrameTag {
		return 0, 0, nil, fmt.Errorf("turn: bad audio frame tag %q", raw[0:4])
	}
	turnID = binary.LittleEndian.Uint32(raw[4:8])
	seq = binary.LittleEndian.Uint32(raw[8:12])
	payload = raw[audioFrameHeaderLen:]
	return turnID, seq, payload, nil
}

// Control message type names (spec.md §6).
const (
	msgHello         = "hello"
	msgStateUpdate   = "state_update"
	msgAssistantDelta = "assistant_delta"
	msgAssistantFinal = "assistant_final"
	msgAudioBegin    = "audio_begin"
	msgAudioEnd      = "audio_end"
	msgAudioCancel   = "audio_cancel"
	msgError         = "error"
)

// Turn states carried in state_update.
const (
	StateThinking = "thinking"
	StateSpeaking = "speaking"
	StateIdle     = "idle"
)

// Inbound message type names.
const (
	inUserText  = "user_text"
	inInterrupt = "interrupt"
)

// inboundMessage is the shape of any client->server text frame; other
// fields depend on Type.
type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func helloMessage(sessionID, instanceID string) map[string]any {
	return map[string]any{
		"type":               msgHello,
		"msg":                "connected",
		"session_id":         sessionID,
		"server_instance_id": instanceID,
		"turn_id_reset":      0,
	}
}

func stateUpdateMessage(turnID uint32, state string) map[string]any {
	return map[string]any{
		"type":    msgStateUpdate,
		"turn_id": turnID,
		"state":   state,
	}
}

func assistantDeltaMessage(turnID uint32, delta string) map[string]any {
	return map[string]any{
		"type":    msgAssistantDelta,
		"turn_id": turnID,
		"delta":   delta,
	}
}

func assistantFinalMessage(turnID uint32, text string) map[string]any {
	return map[string]any{
		"type":    msgAssistantFinal,
		"turn_id": turnID,
		"text":    text,
	}
}

func audioBeginMessage(turnID uint32, synth SpeechSynthesizer) map[string]any {
	return map[string]any{
		"type":        msgAudioBegin,
		"turn_id":     turnID,
		"mime":        synth.Mime(),
		"format":      synth.Format(),
		"sample_rate": synth.SampleRate(),
		"channels":    synth.Channels(),
	}
}

func audioEndMessage(turnID uint32) map[string]any {
	return map[string]any{"type": msgAudioEnd, "turn_id": turnID}
}

func audioCancelMessage(turnID uint32) map[string]any {
	return map[string]any{"type": msgAudioCancel, "turn_id": turnID}
}

func errorMessage(turnID uint32, msg string) map[string]any {
	return map[string]any{"type": msgError, "turn_id": turnID, "msg": msg}
}
