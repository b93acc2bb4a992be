package codec

import (
	"bytes"
	"fmt"

	"github.com/go-webdl/media-codec/avc"
	"github.com/go-webdl/media-codec/hevc"
	"github.com/go-webdl/mp4"
)

// annexBStartCode splits a manifest CodecPrivateData blob (Annex-B: NALUs
// separated by 00 00 00 01 start codes) into individual NALUs. The first
// element of bytes.Split is always the (empty) slice before the first start
// code and is discarded, exactly as MoovProcessor.CreateAvcCMp4Box does.
func annexBStartCode(data []byte) ([][]byte, error) {
	nalus := bytes.Split(data, []byte{0, 0, 0, 1})
	if len(nalus) < 2 {
		return nil, fmt.Errorf("%w: no start codes in CodecPrivateData", ErrMalformedPrivateData)
	}
	return nalus[1:], nil
}

// rewrapAVCC builds an AVCDecoderConfigurationRecord (avcC) from a track's
// Annex-B CodecPrivateData, the Go-native equivalent of the original
// source's smoothstreaming_set_extradata_h264 + ff_isom_write_avcc, grounded
// directly on MoovProcessor.CreateAvcCMp4Box.
func rewrapAVCC(data []byte, lengthSizeMinusOne uint8) (mp4.Box, error) {
	nalus, err := annexBStartCode(data)
	if err != nil {
		return nil, err
	}

	var sps []avc.AVCSequenceParameterSet
	var pps []avc.AVCPictureParameterSet
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch avc.GetNaluType(nalu[0]) {
		case avc.NALU_SPS:
			sps = append(sps, avc.AVCSequenceParameterSet{NALUnit: nalu})
		case avc.NALU_PPS:
			pps = append(pps, avc.AVCPictureParameterSet{NALUnit: nalu})
		}
	}
	if len(sps) == 0 {
		return nil, fmt.Errorf("%w: no SPS NALU in H.264 CodecPrivateData", ErrMalformedPrivateData)
	}

	sp := sps[0].NALUnit
	if len(sp) < 4 {
		return nil, fmt.Errorf("%w: truncated SPS NALU", ErrMalformedPrivateData)
	}

	return &mp4.AVCConfigurationBox{
		AVCConfig: avc.AVCDecoderConfigurationRecord{
			ConfigurationVersion:  1,
			AVCProfileIndication:  sp[1],
			ProfileCompatibility:  sp[2],
			AVCLevelIndication:    sp[3],
			LengthSizeMinusOne:    lengthSizeMinusOne,
			SequenceParameterSets: sps,
			PictureParameterSets:  pps,
		},
	}, nil
}

// rewrapHVCC builds an HEVCDecoderConfigurationRecord (hvcC), grounded on
// MoovProcessor.CreateHvcCMp4Box. spec.md only requires H.264/VC-1; HEVC
// support is carried forward from the teacher rather than dropped (see
// DESIGN.md).
func rewrapHVCC(data []byte) (mp4.Box, error) {
	nalus, err := annexBStartCode(data)
	if err != nil {
		return nil, err
	}

	var vpsNalus, spsNalus, ppsNalus [][]byte
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch hevc.GetNaluType(nalu[0]) {
		case hevc.NALU_VPS:
			vpsNalus = append(vpsNalus, nalu)
		case hevc.NALU_SPS:
			spsNalus = append(spsNalus, nalu)
		case hevc.NALU_PPS:
			ppsNalus = append(ppsNalus, nalu)
		}
	}
	if len(spsNalus) == 0 {
		return nil, fmt.Errorf("%w: no SPS NALU in HEVC CodecPrivateData", ErrMalformedPrivateData)
	}

	conf, err := hevc.CreateHEVCDecoderConfigurationRecord(vpsNalus, spsNalus, ppsNalus, true, true, true)
	if err != nil {
		return nil, fmt.Errorf("build hvcC: %w", err)
	}
	return &mp4.HEVCConfigurationBox{HEVCConfig: conf}, nil
}
