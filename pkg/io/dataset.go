package io

import (
	"math/rand"
	"sort"
)

// DataBatch is a group of records processed together.
type DataBatch []*DataRecord

func (b DataBatch) Texts() []string {
	result := make([]string, len(b))
	for i, r := range b {
		result[i] = r.Text
	}
	return result
}

type DataSet struct {
	Data         []*DataRecord
	BatchSize    int
	Rand         *rand.Rand
	dataIndices  []int
	currentOrder []int
	currentIndex int
}

// Reset rewinds the data set to its first record.
func (d *DataSet) Reset() {
	if d.currentOrder == nil {
		d.currentOrder = make([]int, len(d.dataIndices))
	}
	copy(d.currentOrder, d.dataIndices)
	d.currentIndex = 0
}

// Next returns the next batch of at most BatchSize records, or an empty
// batch once the data set is exhausted.
func (d *DataSet) Next() DataBatch {
	batch := make(DataBatch, 0, d.BatchSize)
	for ; d.currentIndex < len(d.currentOrder) && len(batch) < d.BatchSize; d.currentIndex++ {
		batch = append(batch, d.Data[d.currentOrder[d.currentIndex]])
	}
	return batch
}

func (d *DataSet) Size() int {
	return len(d.dataIndices)
}

// Records returns the records of the data set in its current order.
func (d *DataSet) Records() []*DataRecord {
	result := make([]*DataRecord, len(d.currentOrder))
	for i, index := range d.currentOrder {
		result[i] = d.Data[index]
	}
	return result
}

func NewDataSet(data []*DataRecord, batchSize int) *DataSet {
	dataIndices := make([]int, len(data))
	for i := range dataIndices {
		dataIndices[i] = i
	}
	return NewDataSetSplit(data, batchSize, dataIndices)
}

func NewDataSetSplit(data []*DataRecord, batchSize int, indices []int) *DataSet {
	if batchSize < 1 {
		batchSize = 1
	}
	ds := &DataSet{
		Data: data, BatchSize: batchSize, dataIndices: indices}
	ds.Reset()
	return ds
}

// RandomSplit shuffles the records with d.Rand and cuts them into data sets
// of the given sizes. Split records keep their original relative order.
func (d *DataSet) RandomSplit(sizes ...int) []*DataSet {
	indices := make([]int, len(d.dataIndices))
	copy(indices, d.dataIndices)
	d.Rand.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	splits := make([]*DataSet, len(sizes))
	idx := 0
	for i := range sizes {
		splitIndices := make([]int, sizes[i])
		copy(splitIndices, indices[idx:idx+sizes[i]])
		idx += sizes[i]
		sort.Ints(splitIndices)
		splits[i] = NewDataSetSplit(d.Data, d.BatchSize, splitIndices)
		splits[i].Rand = d.Rand
	}
	return splits
}
