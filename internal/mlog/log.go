package mlog

import (
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/eclipse-tractusx/tractusx-edc-sub007/process"
)

// LogConsume logs a message indicating that a parcel is being consumed.
func LogConsume(
	log logging.Logger,
	p process.Parcel,
	fc uint,
) {
	logging.LogString(
		log,
		String(
			parcelIDs(p),
			[]Icon{
				ConsumeIcon,
				retryIcon(fc),
			},
			string(p.Channel),
			describe(p),
		),
	)
}

// LogProduce logs a message indicating that a parcel is being produced.
func LogProduce(
	log logging.Logger,
	p process.Parcel,
) {
	logging.LogString(
		log,
		String(
			parcelIDs(p),
			[]Icon{
				ProduceIcon,
				"",
			},
			string(p.Channel),
			describe(p),
		),
	)
}

// LogNack logs a message indicating that a parcel could not be processed and
// will be retried.
func LogNack(
	log logging.Logger,
	p process.Parcel,
	cause error,
	delay time.Duration,
) {
	logging.LogString(
		log,
		String(
			parcelIDs(p),
			[]Icon{
				ConsumeErrorIcon,
				ErrorIcon,
			},
			string(p.Channel),
			cause.Error(),
			fmt.Sprintf("next retry in %s", delay),
		),
	)
}

// LogAbandon logs a message indicating that processing of a parcel has been
// abandoned.
func LogAbandon(
	log logging.Logger,
	p process.Parcel,
	cause error,
) {
	logging.LogString(
		log,
		String(
			parcelIDs(p),
			[]Icon{
				ConsumeErrorIcon,
				ErrorIcon,
			},
			string(p.Channel),
			cause.Error(),
			"abandoned",
		),
	)
}

func parcelIDs(p process.Parcel) []IconWithLabel {
	return []IconWithLabel{
		MessageIDIcon.WithID(p.MessageID),
		CausationIDIcon.WithID(p.CauseID),
		TraceIDIcon.WithID(p.TraceID),
	}
}

func describe(p process.Parcel) string {
	if p.Record != nil {
		return p.Record.String()
	}

	if p.Reference != nil {
		return fmt.Sprintf("data-reference for agreement %s", p.Reference.AgreementID)
	}

	return ""
}

func retryIcon(fc uint) Icon {
	if fc == 0 {
		return ""
	}

	return RetryIcon
}
