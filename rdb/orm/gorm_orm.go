package orm

import (
	"context"
	"math"
	"reflect"

	"github.com/hatlonely/flakeless/uid/intgen"
	"github.com/hatlonely/flakeless/uid/strgen"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var ErrRecordNotFound = errors.New("record not found")

type GormOptions struct {
	// Driver 数据库驱动：sqlite, mysql
	Driver string `cfg:"driver" def:"sqlite" validate:"oneof=sqlite mysql"`
	DSN    string `cfg:"dsn" validate:"required"`
	// AutoMigrate 打开后为这些模型建表
	AutoMigrate []any `cfg:"-"`
}

// OpenGorm 打开数据库，关闭 gorm 自带的日志
func OpenGorm(options *GormOptions) (*gorm.DB, error) {
	if options == nil || options.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	var dialector gorm.Dialector
	switch options.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(options.DSN)
	case "mysql":
		dialector = mysql.Open(options.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver: %s", options.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if len(options.AutoMigrate) > 0 {
		if err := db.AutoMigrate(options.AutoMigrate...); err != nil {
			return nil, errors.Wrap(err, "failed to migrate")
		}
	}
	return db, nil
}

type GormORMOptions struct {
	// StrGenerator 字符串主键使用
	StrGenerator strgen.StrGenerator
	// IntGenerator uint64/int64 主键使用
	IntGenerator intgen.IntGenerator
}

// GormORM T 必须是结构体指针，主键由 gorm 的模型解析确定
type GormORM[T any] struct {
	db           *gorm.DB
	strGenerator strgen.StrGenerator
	intGenerator intgen.IntGenerator
	primaryKey   *schema.Field
}

func NewGormORM[T any](db *gorm.DB, options *GormORMOptions) (*GormORM[T], error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if options == nil {
		options = &GormORMOptions{}
	}

	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Kind() != reflect.Ptr || rt.Elem().Kind() != reflect.Struct {
		return nil, errors.Errorf("record type %v must be a pointer to struct", rt)
	}

	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(reflect.New(rt.Elem()).Interface()); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %v", rt.Elem())
	}

	field := stmt.Schema.PrioritizedPrimaryField
	if field == nil {
		return nil, errors.Errorf("no primary key in %v", rt.Elem())
	}

	switch field.FieldType.Kind() {
	case reflect.String:
		if options.StrGenerator == nil {
			return nil, errors.Errorf("string primary key %s requires a StrGenerator", field.Name)
		}
	case reflect.Uint64, reflect.Int64:
		if options.IntGenerator == nil {
			return nil, errors.Errorf("integer primary key %s requires an IntGenerator", field.Name)
		}
	default:
		return nil, errors.Errorf("unsupported primary key type %v", field.FieldType)
	}

	return &GormORM[T]{
		db:           db,
		strGenerator: options.StrGenerator,
		intGenerator: options.IntGenerator,
		primaryKey:   field,
	}, nil
}

func (o *GormORM[T]) Create(ctx context.Context, record T) error {
	rv := reflect.ValueOf(record)
	if rv.IsNil() {
		return errors.New("record is nil")
	}

	key := o.primaryKey.ReflectValueOf(ctx, rv.Elem())
	if key.IsZero() {
		if err := o.fillKey(ctx, key); err != nil {
			return err
		}
	}

	if err := o.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(err, "failed to create record")
	}
	return nil
}

func (o *GormORM[T]) fillKey(ctx context.Context, key reflect.Value) error {
	if key.Kind() == reflect.String {
		ids, err := strgen.GenerateN(ctx, o.strGenerator, 1)
		if err != nil {
			return errors.WithMessage(err, "failed to generate id")
		}
		key.SetString(ids[0])
		return nil
	}

	id, err := intgen.GenerateContext(ctx, o.intGenerator)
	if err != nil {
		return errors.WithMessage(err, "failed to generate id")
	}
	if key.Kind() == reflect.Int64 {
		if id > math.MaxInt64 {
			return errors.Errorf("id %d overflows int64", id)
		}
		key.SetInt(int64(id))
		return nil
	}
	key.SetUint(id)
	return nil
}

func (o *GormORM[T]) Get(ctx context.Context, id any) (T, error) {
	var zero T
	record := reflect.New(reflect.TypeOf(zero).Elem()).Interface().(T)

	err := o.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: o.primaryKey.DBName}, Value: id}).
		First(record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, ErrRecordNotFound
	}
	if err != nil {
		return zero, errors.Wrap(err, "failed to get record")
	}
	return record, nil
}
