package naf

import "time"

// TimestampLayout is the NAF header timestamp format.
const TimestampLayout = "2006-01-02T15:04:05-0700"

// AddLinguisticProcessor records that name/version produced layer between
// begin and end.  Processors are appended to an existing entry for the layer
// or to a new one at the end of the header.
func (d *Document) AddLinguisticProcessor(layer, name, version string, begin, end time.Time) {
	if d.Header == nil {
		d.Header = &Header{}
	}
	lp := Processor{
		Name:           name,
		Version:        version,
		BeginTimestamp: begin.Format(TimestampLayout),
		EndTimestamp:   end.Format(TimestampLayout),
	}
	for i := range d.Header.Processors {
		if d.Header.Processors[i].Layer == layer {
			d.Header.Processors[i].Processors = append(d.Header.Processors[i].Processors, lp)
			return
		}
	}
	d.Header.Processors = append(d.Header.Processors, LinguisticProcessors{
		Layer:      layer,
		Processors: []Processor{lp},
	})
}

// LinguisticProcessors returns the processors recorded for layer.
func (d *Document) LinguisticProcessors(layer string) []Processor {
	if d.Header == nil {
		return nil
	}
	for _, lps := range d.Header.Processors {
		if lps.Layer == layer {
			return lps.Processors
		}
	}
	return nil
}
